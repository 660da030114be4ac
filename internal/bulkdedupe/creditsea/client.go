// Package creditsea implements the CreditSea lender workflow: the dedupe
// check and the DSA lead creation call. Both make a single attempt with a
// bounded timeout and translate every condition into a normalized outcome.
package creditsea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lending_crm_backend/internal/bulkdedupe/domain"
	"lending_crm_backend/platform/config"
	"lending_crm_backend/platform/logger"
)

const (
	dedupePath     = "/api/v1/dsa/check-dedupe"
	createLeadPath = "/api/v1/leads/create-lead-dsa"

	// successMessage is the only marker of a created lead. HTTP 200 with
	// any other message is a rejection.
	successMessage = "Lead generated successfully"
)

// requiredLeadFields must all be present on a row before the creation call
// is attempted. The names are the lender's, verbatim from its contract.
var requiredLeadFields = []string{
	"first_name", "last_name", "phoneNumber", "pan",
	"dob", "gender", "pinCode", "income", "employmentType",
}

type Client struct {
	baseURL  string
	apiKey   string
	sourceID string
	client   *http.Client
	log      *logger.Logger
}

func NewClient(cfg config.CreditSeaConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetCreditSeaBaseURL(), "/"),
		apiKey:   cfg.GetCreditSeaDedupeAPIKey(),
		sourceID: cfg.GetCreditSeaSourceID(),
		client:   &http.Client{Timeout: cfg.GetCreditSeaTimeout()},
		log:      log,
	}
}

type dedupeRequest struct {
	PhoneNumber *string `json:"phoneNumber"`
	PANNumber   *string `json:"panNumber"`
}

type dedupeResponse struct {
	Success *bool `json:"success"`
	Dedupe  *bool `json:"dedupe"`
}

// CheckDedupe asks CreditSea whether the phone/PAN pair is already known.
// Either argument may be empty; absent values are sent as JSON null. Any
// transport failure, non-2xx status or unexpected body shape collapses to
// FAILED/API_ERROR.
func (c *Client) CheckDedupe(ctx context.Context, phoneNumber, panNumber string) domain.Outcome {
	started := time.Now()
	outcome := c.checkDedupe(ctx, phoneNumber, panNumber)
	c.log.LenderCall("creditsea", "check_dedupe", string(outcome.Result), float64(time.Since(started).Milliseconds()))
	return outcome
}

func (c *Client) checkDedupe(ctx context.Context, phoneNumber, panNumber string) domain.Outcome {
	payload := dedupeRequest{}
	if phoneNumber != "" {
		payload.PhoneNumber = &phoneNumber
	}
	if panNumber != "" {
		payload.PANNumber = &panNumber
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apiError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+dedupePath, bytes.NewReader(body))
	if err != nil {
		return apiError()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return apiError()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError()
	}

	var parsed dedupeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return apiError()
	}
	if parsed.Success == nil || !*parsed.Success || parsed.Dedupe == nil {
		return apiError()
	}

	if *parsed.Dedupe {
		return domain.Outcome{Status: domain.StatusSuccess, Result: domain.ResultDuplicate}
	}
	return domain.Outcome{Status: domain.StatusSuccess, Result: domain.ResultNotDuplicate}
}

type createLeadRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PhoneNumber    string `json:"phoneNumber"`
	PAN            string `json:"pan"`
	DOB            string `json:"dob"`
	Gender         string `json:"gender"`
	PinCode        string `json:"pinCode"`
	Income         string `json:"income"`
	EmploymentType string `json:"employmentType"`
}

type createLeadResponse struct {
	Message string `json:"message"`
	LeadID  string `json:"leadId"`
	UTMLink string `json:"utmLink"`
}

// CreateLead submits a row as a DSA lead. All required fields are checked
// before any network activity; a missing one fails the row with
// VALIDATION_ERROR. A reachable API that does not answer with the success
// message is API_REJECTED, carrying whatever message it provided; transport
// failures are API_ERROR.
func (c *Client) CreateLead(ctx context.Context, row domain.Row) domain.Outcome {
	started := time.Now()
	outcome := c.createLead(ctx, row)
	c.log.LenderCall("creditsea", "create_lead", string(outcome.Result), float64(time.Since(started).Milliseconds()))
	return outcome
}

func (c *Client) createLead(ctx context.Context, row domain.Row) domain.Outcome {
	for _, field := range requiredLeadFields {
		if row.Get(field) == "" {
			return domain.Outcome{
				Status:  domain.StatusFailed,
				Result:  domain.ResultValidationError,
				Message: fmt.Sprintf("Missing field: %s", field),
			}
		}
	}

	payload := createLeadRequest{
		FirstName:      row.Get("first_name"),
		LastName:       row.Get("last_name"),
		PhoneNumber:    row.Get("phoneNumber"),
		PAN:            row.Get("pan"),
		DOB:            row.Get("dob"),
		Gender:         strings.ToLower(row.Get("gender")),
		PinCode:        row.Get("pinCode"),
		Income:         row.Get("income"),
		EmploymentType: strings.ToLower(row.Get("employmentType")),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apiError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createLeadPath, bytes.NewReader(body))
	if err != nil {
		return apiError()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("sourceid", c.sourceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return apiError()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed createLeadResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	// The API was reached. A parseable rejection body keeps its message;
	// everything else falls back to a generic one.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && parsed.Message != "" {
			message = parsed.Message
		}
		return domain.Outcome{Status: domain.StatusFailed, Result: domain.ResultAPIRejected, Message: message}
	}

	if decodeErr != nil {
		return apiError()
	}

	if parsed.Message == successMessage {
		return domain.Outcome{
			Status:  domain.StatusSuccess,
			Result:  domain.ResultLeadCreated,
			LeadID:  parsed.LeadID,
			UTMLink: parsed.UTMLink,
		}
	}

	message := parsed.Message
	if message == "" {
		message = "Unknown error"
	}
	return domain.Outcome{Status: domain.StatusFailed, Result: domain.ResultAPIRejected, Message: message}
}

func apiError() domain.Outcome {
	return domain.Outcome{Status: domain.StatusFailed, Result: domain.ResultAPIError}
}
