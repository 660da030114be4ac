package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"lending_crm_backend/internal/leads/domain"
	"lending_crm_backend/internal/leads/transport"
	"lending_crm_backend/platform/apperr"
)

// phoneColumns are the accepted spellings of the natural-key column. A CSV
// without one of these (or a pan column) cannot address any record.
var phoneColumns = []string{"phone_number", "phonenumber", "mobile"}

// ImportCSV ingests a lead CSV. Each row is normalized leniently (bad
// optional values are dropped, not fatal) and upserted in its own
// transaction, so one bad row never blocks the rest. Row numbers in the
// summary count the header as row 1.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, source string) (transport.ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return transport.ImportSummary{}, apperr.BadRequest("empty or unreadable CSV file")
	}
	columns := normalizeHeader(header)
	if err := validateHeader(columns); err != nil {
		return transport.ImportSummary{}, err
	}

	summary := transport.ImportSummary{}
	rowNumber := 1 // header

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		if err != nil {
			summary.Total++
			summary.Failed++
			summary.Errors = append(summary.Errors, transport.RowError{
				Row:   rowNumber,
				Error: "malformed CSV row",
			})
			continue
		}
		summary.Total++

		created, err := s.importRow(ctx, columns, record, source)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, transport.RowError{
				Row:   rowNumber,
				Error: err.Error(),
			})
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}

	return summary, nil
}

func (s *Service) importRow(ctx context.Context, columns, record []string, source string) (bool, error) {
	raw := make(map[string]string, len(columns))
	for i, col := range columns {
		if i < len(record) {
			raw[col] = record[i]
		}
	}

	phoneNumber, fields, err := domain.NormalizeRow(raw, domain.NormalizeOptions{
		PinPolicy: domain.PinPolicyZeroPad,
	})
	if err != nil {
		return false, err
	}

	_, created, err := s.store.Upsert(ctx, phoneNumber, fields, source)
	if err != nil {
		s.log.DatabaseError("leads.import_row", err)
		return false, fmt.Errorf("failed to save row: %w", err)
	}
	return created, nil
}

func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF")))
	}
	return columns
}

func validateHeader(columns []string) error {
	for _, col := range columns {
		for _, want := range phoneColumns {
			if col == want {
				return nil
			}
		}
	}
	return apperr.Validation("CSV must contain a phone number column (phone_number, phonenumber or mobile)")
}
