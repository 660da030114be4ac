// Package service implements lead business logic: natural-key upserts,
// CSV ingestion and the two-phase staged import flow.
package service

import (
	"context"
	"errors"

	"lending_crm_backend/internal/events"
	"lending_crm_backend/internal/leads/domain"
	"lending_crm_backend/internal/leads/repository"
	"lending_crm_backend/internal/leads/transport"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"
	"lending_crm_backend/platform/validator"
)

// Sources recorded on the lead meta row with every write.
const (
	SourceAPI     = "api"
	SourceLeadCSV = "lead_csv"
	SourceAdmin   = "admin"
)

// Store is the persistence surface the service depends on.
type Store interface {
	GetByPhone(ctx context.Context, phoneNumber string) (domain.Lead, error)
	Upsert(ctx context.Context, phoneNumber string, fields domain.FieldMap, source string) (domain.Lead, bool, error)
	RecomputeAges(ctx context.Context) (int64, error)
}

type Service struct {
	store    Store
	bus      events.Bus
	validate *validator.Validator
	log      *logger.Logger
}

func New(store Store, bus events.Bus, validate *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, validate: validate, log: log}
}

// Upsert applies the strict API path: every supplied field must be valid,
// there is no silent dropping. Returns the stored record and whether it was
// newly created.
func (s *Service) Upsert(ctx context.Context, req transport.UpsertLeadRequest, source string) (transport.LeadResponse, bool, error) {
	if err := s.validate.Struct(req); err != nil {
		return transport.LeadResponse{}, false, apperr.Validation("validation failed").WithDetails(err.Error())
	}

	phoneNumber, fields, err := domain.NormalizeRow(req.ToRow(), domain.NormalizeOptions{
		PinPolicy: domain.PinPolicyStrict,
		Strict:    true,
	})
	if err != nil {
		return transport.LeadResponse{}, false, err
	}

	lead, created, err := s.store.Upsert(ctx, phoneNumber, fields, source)
	if err != nil {
		s.log.DatabaseError("leads.upsert", err)
		return transport.LeadResponse{}, false, apperr.Wrap(apperr.KindInternal, "failed to save lead", err)
	}

	s.bus.Publish(ctx, events.LeadUpserted{
		BaseEvent:   events.NewBaseEvent(),
		PhoneNumber: lead.PhoneNumber,
		Created:     created,
		Source:      source,
	})

	return transport.ToLeadResponse(lead), created, nil
}

// GetByPhone looks a lead up by any phone spelling that reduces to the same
// 10 digits.
func (s *Service) GetByPhone(ctx context.Context, raw string) (transport.LeadResponse, error) {
	phoneNumber, err := domain.NormalizePhoneNumber(raw)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.store.GetByPhone(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("leads.get_by_phone", err)
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return transport.ToLeadResponse(lead), nil
}

// RecomputeAges refreshes every derived age column. Invoked by the
// scheduled maintenance task.
func (s *Service) RecomputeAges(ctx context.Context) (int64, error) {
	n, err := s.store.RecomputeAges(ctx)
	if err != nil {
		s.log.DatabaseError("leads.recompute_ages", err)
		return 0, apperr.Wrap(apperr.KindInternal, "failed to recompute ages", err)
	}
	return n, nil
}
