// Package service implements lender registry seeding, MIS ingestion and
// statistics.
package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lending_crm_backend/internal/events"
	"lending_crm_backend/internal/lenders/domain"
	"lending_crm_backend/internal/lenders/repository"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"
	"lending_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence surface the service depends on.
type Store interface {
	UpsertByCode(ctx context.Context, l domain.Lender) (domain.Lender, error)
	GetByCode(ctx context.Context, code string) (domain.Lender, error)
	List(ctx context.Context) ([]domain.Lender, error)
	InsertMISRecords(ctx context.Context, lenderID int64, records []domain.MISRecord) (int, error)
	RecomputeStats(ctx context.Context, lenderID int64) (domain.Stats, error)
	RecomputeAllStats(ctx context.Context) (int64, error)
	GetStats(ctx context.Context, lenderID int64) (domain.Stats, error)
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

func New(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Seed writes every registry entry into the database. Called at startup so
// the YAML file stays the source of truth for lender configuration.
func (s *Service) Seed(ctx context.Context, entries []domain.Lender) error {
	for _, entry := range entries {
		if _, err := s.store.UpsertByCode(ctx, entry); err != nil {
			s.log.DatabaseError("lenders.seed", err)
			return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("failed to seed lender %s", entry.Code), err)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.Lender, error) {
	lenders, err := s.store.List(ctx)
	if err != nil {
		s.log.DatabaseError("lenders.list", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list lenders", err)
	}
	return lenders, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Lender, error) {
	lender, err := s.store.GetByCode(ctx, domain.NormalizeCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lender{}, apperr.NotFound("lender not found")
	}
	if err != nil {
		s.log.DatabaseError("lenders.get_by_code", err)
		return domain.Lender{}, apperr.Wrap(apperr.KindInternal, "failed to load lender", err)
	}
	return lender, nil
}

// CheckEligibility applies the pincode serviceability rule for one lender.
func (s *Service) CheckEligibility(ctx context.Context, code, pinCode string) (bool, error) {
	lender, err := s.GetByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if !lender.Active {
		return false, nil
	}
	return lender.ServesPinCode(pinCode), nil
}

func (s *Service) Stats(ctx context.Context, code string) (domain.Stats, error) {
	lender, err := s.GetByCode(ctx, code)
	if err != nil {
		return domain.Stats{}, err
	}
	stats, err := s.store.GetStats(ctx, lender.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Stats{LenderID: lender.ID}, nil
	}
	if err != nil {
		s.log.DatabaseError("lenders.stats", err)
		return domain.Stats{}, apperr.Wrap(apperr.KindInternal, "failed to load lender stats", err)
	}
	return stats, nil
}

// RecomputeStatsByCode rebuilds one lender's aggregates on demand.
func (s *Service) RecomputeStatsByCode(ctx context.Context, code string) (domain.Stats, error) {
	lender, err := s.GetByCode(ctx, code)
	if err != nil {
		return domain.Stats{}, err
	}
	stats, err := s.store.RecomputeStats(ctx, lender.ID)
	if err != nil {
		s.log.DatabaseError("lenders.recompute_stats", err)
		return domain.Stats{}, apperr.Wrap(apperr.KindInternal, "failed to recompute lender stats", err)
	}
	return stats, nil
}

// RecomputeAllStats refreshes every lender's aggregates. Invoked by the
// scheduled maintenance task.
func (s *Service) RecomputeAllStats(ctx context.Context) (int64, error) {
	n, err := s.store.RecomputeAllStats(ctx)
	if err != nil {
		s.log.DatabaseError("lenders.recompute_stats", err)
		return n, apperr.Wrap(apperr.KindInternal, "failed to recompute lender stats", err)
	}
	return n, nil
}

// MISImportSummary reports the outcome of one MIS file ingestion.
type MISImportSummary struct {
	Total    int          `json:"total"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Errors   []string     `json:"errors,omitempty"`
	Stats    domain.Stats `json:"stats"`
}

// misDateFormats accepted in the reported_at column.
var misDateFormats = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// ImportMIS ingests a lender MIS CSV. Required columns: lead_id (the
// lender's UUID) and mobile. Rows with an invalid UUID or mobile are
// skipped with a recorded error; the batch is stored in one transaction,
// linked to leads by mobile, and statistics are recomputed afterwards.
func (s *Service) ImportMIS(ctx context.Context, code string, r io.Reader) (MISImportSummary, error) {
	lender, err := s.GetByCode(ctx, code)
	if err != nil {
		return MISImportSummary{}, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return MISImportSummary{}, apperr.BadRequest("empty or unreadable MIS file")
	}
	col := indexColumns(header)
	if _, ok := col["lead_id"]; !ok {
		return MISImportSummary{}, apperr.Validation("MIS file must contain a lead_id column")
	}
	if _, ok := col["mobile"]; !ok {
		return MISImportSummary{}, apperr.Validation("MIS file must contain a mobile column")
	}

	var summary MISImportSummary
	var records []domain.MISRecord
	rowNumber := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		summary.Total++
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: malformed CSV row", rowNumber))
			continue
		}

		rec, err := parseMISRow(col, record)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %v", rowNumber, err))
			continue
		}
		records = append(records, rec)
	}

	if len(records) > 0 {
		imported, err := s.store.InsertMISRecords(ctx, lender.ID, records)
		if err != nil {
			s.log.DatabaseError("lenders.import_mis", err)
			return MISImportSummary{}, apperr.Wrap(apperr.KindInternal, "failed to store MIS records", err)
		}
		summary.Imported = imported
	}

	stats, err := s.store.RecomputeStats(ctx, lender.ID)
	if err != nil {
		s.log.DatabaseError("lenders.import_mis.stats", err)
		return MISImportSummary{}, apperr.Wrap(apperr.KindInternal, "failed to recompute lender stats", err)
	}
	summary.Stats = stats

	s.bus.Publish(ctx, events.LenderMISUploaded{
		BaseEvent: events.NewBaseEvent(),
		LenderID:  lender.ID,
		Records:   summary.Imported,
	})

	return summary, nil
}

func parseMISRow(col map[string]int, record []string) (domain.MISRecord, error) {
	get := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	leadID := get("lead_id")
	if _, err := uuid.Parse(leadID); err != nil {
		return domain.MISRecord{}, fmt.Errorf("invalid lead_id %q", leadID)
	}

	mobile := phone.Digits(get("mobile"))
	if len(mobile) != 10 {
		return domain.MISRecord{}, fmt.Errorf("invalid mobile %q", get("mobile"))
	}

	rec := domain.MISRecord{
		LenderLeadID: leadID,
		Mobile:       mobile,
		Status:       domain.NormalizeCode(get("status")),
		ReportedAt:   time.Now(),
	}
	if rec.Status == "" {
		rec.Status = domain.MISStatusPending
	}

	if v := get("disbursed_amount"); v != "" {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil || amount < 0 {
			return domain.MISRecord{}, fmt.Errorf("invalid disbursed_amount %q", v)
		}
		rec.DisbursedAmount = &amount
	}

	if v := get("reported_at"); v != "" {
		for _, layout := range misDateFormats {
			if ts, err := time.Parse(layout, v); err == nil {
				rec.ReportedAt = ts
				break
			}
		}
	}
	return rec, nil
}

func indexColumns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))] = i
	}
	return col
}
