package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"lending_crm_backend/internal/bulkdedupe/domain"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(wf Workflow) *Pipeline {
	reg := NewRegistry()
	if wf != nil {
		reg.Register("creditsea", wf)
	}
	return NewPipeline(reg, logger.New("development"))
}

func parseResults(t *testing.T, out *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(out).ReadAll()
	require.NoError(t, err)
	return records
}

func TestProcess_RoundTrip(t *testing.T) {
	// Two rows, dedupe only: one duplicate, one not.
	outcomes := []domain.Outcome{
		{Status: domain.StatusSuccess, Result: domain.ResultDuplicate},
		{Status: domain.StatusSuccess, Result: domain.ResultNotDuplicate},
	}
	calls := 0
	wf := &sequenceWorkflow{outcomes: &outcomes, calls: &calls}

	input := "phoneNumber,pan\n9876543210,ABCPV1234K\n9123456789,XYZPA5678B\n"
	var out bytes.Buffer

	summary, err := newTestPipeline(wf).Process(context.Background(),
		strings.NewReader(input), &out, []string{"creditsea"}, true, false)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 2, summary.Results)

	records := parseResults(t, &out)
	require.Len(t, records, 3, "header plus one result per (row, lender) pair")
	assert.Equal(t, domain.ResultHeader, records[0])

	assert.Equal(t, []string{"1", "creditsea", "SUCCESS", "DUPLICATE", "", "", ""}, records[1])
	assert.Equal(t, []string{"2", "creditsea", "SUCCESS", "NOT_DUPLICATE", "", "", ""}, records[2])
}

func TestProcess_RowMajorCrossProduct(t *testing.T) {
	wf := &stubWorkflow{dedupe: outcome(domain.StatusSuccess, domain.ResultNotDuplicate)}
	reg := NewRegistry()
	reg.Register("creditsea", wf)
	pipeline := NewPipeline(reg, logger.New("development"))

	input := "phoneNumber\n9876543210\n9123456789\n"
	var out bytes.Buffer

	summary, err := pipeline.Process(context.Background(),
		strings.NewReader(input), &out, []string{"creditsea", "moneyview"}, true, false)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Results)

	records := parseResults(t, &out)
	require.Len(t, records, 5)
	// Row-major: all lenders of row 1 before any of row 2.
	assert.Equal(t, []string{"1", "creditsea"}, records[1][:2])
	assert.Equal(t, []string{"1", "moneyview"}, records[2][:2])
	assert.Equal(t, []string{"2", "creditsea"}, records[3][:2])
	assert.Equal(t, []string{"2", "moneyview"}, records[4][:2])

	assert.Equal(t, "UNSUPPORTED_LENDER", records[2][3])
	assert.Equal(t, "FAILED", records[2][2])
}

func TestProcess_ContinuesPastFailures(t *testing.T) {
	outcomes := []domain.Outcome{
		{Status: domain.StatusFailed, Result: domain.ResultAPIError},
		{Status: domain.StatusSuccess, Result: domain.ResultNotDuplicate},
	}
	calls := 0
	wf := &sequenceWorkflow{outcomes: &outcomes, calls: &calls}

	input := "phoneNumber\n9876543210\n9123456789\n"
	var out bytes.Buffer

	summary, err := newTestPipeline(wf).Process(context.Background(),
		strings.NewReader(input), &out, []string{"creditsea"}, true, false)
	require.NoError(t, err, "per-row failures never abort the run")
	assert.Equal(t, 2, summary.Results)

	records := parseResults(t, &out)
	assert.Equal(t, "API_ERROR", records[1][3])
	assert.Equal(t, "NOT_DUPLICATE", records[2][3])
}

func TestProcess_HeaderPrecondition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"phoneNumber column", "phoneNumber,name\n", true},
		{"phonenumber column", "phonenumber\n", true},
		{"mobile column", "mobile\n", true},
		{"pan column only", "pan,name\n", true},
		{"neither", "name,city\nRavi,Delhi\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := newTestPipeline(&stubWorkflow{}).Process(context.Background(),
				strings.NewReader(tt.input), &out, []string{"creditsea"}, true, false)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				assert.Zero(t, out.Len(), "nothing written when the header is rejected")
			}
		})
	}
}

func TestProcess_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	_, err := newTestPipeline(&stubWorkflow{}).Process(context.Background(),
		strings.NewReader(""), &out, []string{"creditsea"}, true, false)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestProcess_MessageSurvivesCSVRoundTrip(t *testing.T) {
	wf := &stubWorkflow{create: domain.Outcome{
		Status:  domain.StatusFailed,
		Result:  domain.ResultValidationError,
		Message: "Missing field: pinCode",
	}}

	var out bytes.Buffer
	_, err := newTestPipeline(wf).Process(context.Background(),
		strings.NewReader("phoneNumber\n9876543210\n"), &out, []string{"creditsea"}, false, true)
	require.NoError(t, err)

	records := parseResults(t, &out)
	assert.Equal(t, "Missing field: pinCode", records[1][6])
}

// sequenceWorkflow plays back outcomes in order.
type sequenceWorkflow struct {
	outcomes *[]domain.Outcome
	calls    *int
}

func (s *sequenceWorkflow) next() domain.Outcome {
	o := (*s.outcomes)[*s.calls%len(*s.outcomes)]
	*s.calls++
	return o
}

func (s *sequenceWorkflow) CheckDedupe(context.Context, string, string) domain.Outcome {
	return s.next()
}

func (s *sequenceWorkflow) CreateLead(context.Context, domain.Row) domain.Outcome {
	return s.next()
}
