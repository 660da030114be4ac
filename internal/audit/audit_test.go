package audit

import (
	"context"
	"testing"

	"lending_crm_backend/internal/events"
	"lending_crm_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrail_CountsEvents(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	trail := New(log)
	trail.Register(bus)

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, events.LeadUpserted{
		BaseEvent: events.NewBaseEvent(), PhoneNumber: "9876543210", Created: true, Source: "api",
	}))
	require.NoError(t, bus.PublishSync(ctx, events.LeadUpserted{
		BaseEvent: events.NewBaseEvent(), PhoneNumber: "9876543210", Created: false, Source: "lead_csv",
	}))
	require.NoError(t, bus.PublishSync(ctx, events.BulkRunCompleted{
		BaseEvent: events.NewBaseEvent(), RunID: "run-1", Lenders: []string{"creditsea"}, RowCount: 25,
	}))
	require.NoError(t, bus.PublishSync(ctx, events.LenderMISUploaded{
		BaseEvent: events.NewBaseEvent(), LenderID: 4, Records: 12,
	}))

	snap := trail.Snapshot()
	assert.Equal(t, int64(2), snap.LeadUpserts)
	assert.Equal(t, int64(1), snap.LeadCreates)
	assert.Equal(t, int64(1), snap.BulkRuns)
	assert.Equal(t, int64(25), snap.BulkRows)
	assert.Equal(t, int64(1), snap.MISUploads)
	assert.Equal(t, int64(12), snap.MISRecords)
}

func TestTrail_IgnoresUnexpectedPayloads(t *testing.T) {
	trail := New(logger.New("development"))

	// A handler wired to the wrong event name must not panic or count.
	err := trail.onLeadUpserted(context.Background(), events.BulkRunCompleted{BaseEvent: events.NewBaseEvent()})
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, trail.Snapshot())
}
