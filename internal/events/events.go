// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lending_crm_backend/platform/events"
	"lending_crm_backend/platform/logger"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadUpserted is published after a lead record is created or updated by
// phone-number natural key. Created distinguishes insert from update.
type LeadUpserted struct {
	BaseEvent
	PhoneNumber string `json:"phoneNumber"`
	Created     bool   `json:"created"`
	Source      string `json:"source"` // "api", "lead_csv", "admin"
}

func (e LeadUpserted) EventName() string { return "leads.lead.upserted" }

// =============================================================================
// Bulk Dedupe Domain Events
// =============================================================================

// BulkRunCompleted is published after a bulk dedupe run finishes,
// regardless of per-row outcomes.
type BulkRunCompleted struct {
	BaseEvent
	RunID      string   `json:"runId"`
	Lenders    []string `json:"lenders"`
	RowCount   int      `json:"rowCount"`
	ResultPath string   `json:"resultPath"`
}

func (e BulkRunCompleted) EventName() string { return "bulk.run.completed" }

// =============================================================================
// Lenders Domain Events
// =============================================================================

// LenderMISUploaded is published after a lender MIS file has been ingested.
type LenderMISUploaded struct {
	BaseEvent
	LenderID int64 `json:"lenderId"`
	Records  int   `json:"records"`
}

func (e LenderMISUploaded) EventName() string { return "lenders.mis.uploaded" }
