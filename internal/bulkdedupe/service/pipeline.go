package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"lending_crm_backend/internal/bulkdedupe/domain"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"
)

// headerColumns are the spellings that satisfy the structural precondition:
// the input must identify applicants by phone or by PAN.
var (
	phoneHeaderColumns = []string{"phoneNumber", "phonenumber", "mobile"}
	panHeaderColumn    = "pan"
)

// Pipeline streams an input CSV through the dispatcher and writes one
// result row per (input row, lender) combination.
type Pipeline struct {
	registry *Registry
	log      *logger.Logger
}

func NewPipeline(registry *Registry, log *logger.Logger) *Pipeline {
	return &Pipeline{registry: registry, log: log}
}

// RunSummary reports the scale of a finished run.
type RunSummary struct {
	Rows    int `json:"rows"`
	Results int `json:"results"`
}

// Process runs the bulk dedupe pipeline. The header must contain a
// phone-identifying column or a pan column; that is the only condition that
// aborts the run. Every row is dispatched to every requested lender in
// row-major order and failures are recorded as result rows, never raised.
// The result CSV carries the fixed 7-column header exactly once.
func (p *Pipeline) Process(ctx context.Context, input io.Reader, output io.Writer, lenders []string, checkDedupe, sendLeads bool) (RunSummary, error) {
	reader := csv.NewReader(input)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return RunSummary{}, apperr.BadRequest("CSV file is empty or has no headers")
	}
	header = trimHeader(header)
	if !hasIdentityColumn(header) {
		return RunSummary{}, apperr.Validation("CSV must contain at least one of these columns: 'phoneNumber' or 'pan'")
	}

	writer := csv.NewWriter(output)
	if err := writer.Write(domain.ResultHeader); err != nil {
		return RunSummary{}, apperr.Wrap(apperr.KindInternal, "failed to write result header", err)
	}

	summary := RunSummary{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, apperr.Validation("malformed CSV row after row " + strconv.Itoa(summary.Rows))
		}
		summary.Rows++
		row := domain.NewRow(header, record)

		for _, lender := range lenders {
			outcome := p.registry.Route(ctx, lender, row, checkDedupe, sendLeads)
			result := domain.RowResult{RowNumber: summary.Rows, Lender: lender, Outcome: outcome}
			if err := writeResult(writer, result); err != nil {
				return summary, err
			}
			summary.Results++
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return summary, apperr.Wrap(apperr.KindInternal, "failed to write result CSV", err)
	}
	return summary, nil
}

func writeResult(w *csv.Writer, r domain.RowResult) error {
	err := w.Write([]string{
		strconv.Itoa(r.RowNumber),
		r.Lender,
		string(r.Status),
		string(r.Result),
		r.LeadID,
		r.UTMLink,
		r.Message,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to write result CSV", err)
	}
	return nil
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}
	return out
}

func hasIdentityColumn(header []string) bool {
	for _, h := range header {
		if h == panHeaderColumn {
			return true
		}
		for _, p := range phoneHeaderColumns {
			if h == p {
				return true
			}
		}
	}
	return false
}
