// Package audit consumes domain events, writes an audit log line for each
// and keeps process-lifetime counters.
package audit

import (
	"context"
	"sync"

	"lending_crm_backend/internal/events"
	"lending_crm_backend/platform/logger"
)

// Trail subscribes to the domain events every module publishes. Counters
// reset on restart; durable history lives in the tables each module owns.
type Trail struct {
	log *logger.Logger

	mu          sync.Mutex
	leadUpserts int64
	leadCreates int64
	bulkRuns    int64
	bulkRows    int64
	misUploads  int64
	misRecords  int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	LeadUpserts int64 `json:"leadUpserts"`
	LeadCreates int64 `json:"leadCreates"`
	BulkRuns    int64 `json:"bulkRuns"`
	BulkRows    int64 `json:"bulkRows"`
	MISUploads  int64 `json:"misUploads"`
	MISRecords  int64 `json:"misRecords"`
}

func New(log *logger.Logger) *Trail {
	return &Trail{log: log}
}

// Register subscribes the trail to the bus. Call once at startup.
func (t *Trail) Register(bus events.Bus) {
	bus.Subscribe(events.LeadUpserted{}.EventName(), events.HandlerFunc(t.onLeadUpserted))
	bus.Subscribe(events.BulkRunCompleted{}.EventName(), events.HandlerFunc(t.onBulkRunCompleted))
	bus.Subscribe(events.LenderMISUploaded{}.EventName(), events.HandlerFunc(t.onMISUploaded))
}

func (t *Trail) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		LeadUpserts: t.leadUpserts,
		LeadCreates: t.leadCreates,
		BulkRuns:    t.bulkRuns,
		BulkRows:    t.bulkRows,
		MISUploads:  t.misUploads,
		MISRecords:  t.misRecords,
	}
}

func (t *Trail) onLeadUpserted(_ context.Context, event events.Event) error {
	e, ok := event.(events.LeadUpserted)
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.leadUpserts++
	if e.Created {
		t.leadCreates++
	}
	t.mu.Unlock()

	t.log.Info("audit: lead upserted",
		"phone_number", e.PhoneNumber,
		"created", e.Created,
		"source", e.Source,
	)
	return nil
}

func (t *Trail) onBulkRunCompleted(_ context.Context, event events.Event) error {
	e, ok := event.(events.BulkRunCompleted)
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.bulkRuns++
	t.bulkRows += int64(e.RowCount)
	t.mu.Unlock()

	t.log.Info("audit: bulk run completed",
		"run_id", e.RunID,
		"lenders", e.Lenders,
		"rows", e.RowCount,
		"result_path", e.ResultPath,
	)
	return nil
}

func (t *Trail) onMISUploaded(_ context.Context, event events.Event) error {
	e, ok := event.(events.LenderMISUploaded)
	if !ok {
		return nil
	}
	t.mu.Lock()
	t.misUploads++
	t.misRecords += int64(e.Records)
	t.mu.Unlock()

	t.log.Info("audit: lender MIS uploaded",
		"lender_id", e.LenderID,
		"records", e.Records,
	)
	return nil
}
