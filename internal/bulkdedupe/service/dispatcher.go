// Package service implements the lender dispatcher and the bulk CSV
// pipeline.
package service

import (
	"context"

	"lending_crm_backend/internal/bulkdedupe/domain"
	lenderdomain "lending_crm_backend/internal/lenders/domain"
)

// Workflow is a lender's processing capability. Implementations return
// normalized outcomes for every condition, including transport failures.
type Workflow interface {
	// CheckDedupe asks the lender whether a phone/PAN pair is already
	// known. Either argument may be empty.
	CheckDedupe(ctx context.Context, phoneNumber, panNumber string) domain.Outcome
	// CreateLead submits a row as a new lead with the lender.
	CreateLead(ctx context.Context, row domain.Row) domain.Outcome
}

// Registry maps lowercased lender names to workflows. Adding a lender means
// registering an implementation here, not branching in callers.
type Registry struct {
	workflows map[string]Workflow
}

func NewRegistry() *Registry {
	return &Registry{workflows: make(map[string]Workflow)}
}

// Register stores a workflow under the lowercased name. The last
// registration for a name wins.
func (r *Registry) Register(name string, wf Workflow) {
	r.workflows[lenderdomain.NormalizeCode(name)] = wf
}

// Lookup resolves a lender name case-insensitively.
func (r *Registry) Lookup(name string) (Workflow, bool) {
	wf, ok := r.workflows[lenderdomain.NormalizeCode(name)]
	return wf, ok
}

// Route runs one (row, lender) combination through the flag truth table.
//
//	check=false send=false  -> FAILED / NO_ACTION_SELECTED
//	check=true  send=false  -> dedupe outcome verbatim
//	check=false send=true   -> creation outcome verbatim
//	check=true  send=true   -> dedupe first; its failure or DUPLICATE
//	                           short-circuits, otherwise create
//
// Unknown lenders fail with UNSUPPORTED_LENDER before any external call.
func (r *Registry) Route(ctx context.Context, lenderName string, row domain.Row, checkDedupe, sendLeads bool) domain.Outcome {
	if !checkDedupe && !sendLeads {
		return domain.Outcome{Status: domain.StatusFailed, Result: domain.ResultNoActionSelected}
	}

	wf, ok := r.Lookup(lenderName)
	if !ok {
		return domain.Outcome{Status: domain.StatusFailed, Result: domain.ResultUnsupportedLender}
	}

	switch {
	case checkDedupe && !sendLeads:
		return wf.CheckDedupe(ctx, row.Phone(), row.PAN())
	case !checkDedupe && sendLeads:
		return wf.CreateLead(ctx, row)
	default:
		dedupe := wf.CheckDedupe(ctx, row.Phone(), row.PAN())
		if dedupe.Status != domain.StatusSuccess {
			return dedupe
		}
		if dedupe.Result == domain.ResultDuplicate {
			return domain.Outcome{Status: domain.StatusSuccess, Result: domain.ResultDuplicate}
		}
		return wf.CreateLead(ctx, row)
	}
}
