// Package domain defines the row and result types flowing through the bulk
// dedupe pipeline.
package domain

// Status is the coarse outcome of one (row, lender) combination.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// ResultCode is the fine-grained outcome of one (row, lender) combination.
type ResultCode string

const (
	ResultLeadCreated       ResultCode = "LEAD_CREATED"
	ResultDuplicate         ResultCode = "DUPLICATE"
	ResultNotDuplicate      ResultCode = "NOT_DUPLICATE"
	ResultValidationError   ResultCode = "VALIDATION_ERROR"
	ResultAPIRejected       ResultCode = "API_REJECTED"
	ResultAPIError          ResultCode = "API_ERROR"
	ResultUnsupportedLender ResultCode = "UNSUPPORTED_LENDER"
	ResultNoActionSelected  ResultCode = "NO_ACTION_SELECTED"
)

// Outcome is the normalized response of a lender workflow call. Clients
// always return an Outcome, never a raw transport error.
type Outcome struct {
	Status  Status
	Result  ResultCode
	LeadID  string
	UTMLink string
	Message string
}

// RowResult is one line of the result CSV: an Outcome tagged with its input
// row number and lender. Created once, never mutated.
type RowResult struct {
	RowNumber int
	Lender    string
	Outcome
}

// ResultHeader is the fixed column order of the result CSV.
var ResultHeader = []string{"row_number", "lender", "status", "result", "lead_id", "utm_link", "message"}
