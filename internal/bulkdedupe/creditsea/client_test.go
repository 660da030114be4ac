package creditsea

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lending_crm_backend/internal/bulkdedupe/domain"
	"lending_crm_backend/platform/logger"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetCreditSeaBaseURL() string      { return c.baseURL }
func (c testConfig) GetCreditSeaDedupeAPIKey() string { return "test-api-key" }
func (c testConfig) GetCreditSeaSourceID() string     { return "85674567" }
func (c testConfig) GetCreditSeaTimeout() time.Duration {
	return 2 * time.Second
}

func newTestClient(baseURL string) *Client {
	return NewClient(testConfig{baseURL: baseURL}, logger.New("development"))
}

func validLeadRow() domain.Row {
	return domain.Row{
		"first_name":     "Asha",
		"last_name":      "Verma",
		"phoneNumber":    "9876543210",
		"pan":            "ABCPV1234K",
		"dob":            "1990-06-15",
		"gender":         "Female",
		"pinCode":        "110001",
		"income":         "45000",
		"employmentType": "Salaried",
	}
}

func TestCheckDedupe_Duplicate(t *testing.T) {
	var gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != dedupePath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "dedupe": true})
	}))
	defer srv.Close()

	outcome := newTestClient(srv.URL).CheckDedupe(context.Background(), "9876543210", "ABCPV1234K")

	if outcome.Status != domain.StatusSuccess || outcome.Result != domain.ResultDuplicate {
		t.Fatalf("got %+v, want SUCCESS/DUPLICATE", outcome)
	}
	if gotKey != "test-api-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotBody["phoneNumber"] != "9876543210" || gotBody["panNumber"] != "ABCPV1234K" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestCheckDedupe_NotDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "dedupe": false})
	}))
	defer srv.Close()

	outcome := newTestClient(srv.URL).CheckDedupe(context.Background(), "9876543210", "")
	if outcome.Status != domain.StatusSuccess || outcome.Result != domain.ResultNotDuplicate {
		t.Fatalf("got %+v, want SUCCESS/NOT_DUPLICATE", outcome)
	}
}

func TestCheckDedupe_AbsentFieldsAreNull(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "dedupe": false})
	}))
	defer srv.Close()

	newTestClient(srv.URL).CheckDedupe(context.Background(), "", "ABCPV1234K")

	if string(raw["phoneNumber"]) != "null" {
		t.Errorf("phoneNumber = %s, want null", raw["phoneNumber"])
	}
	if string(raw["panNumber"]) != `"ABCPV1234K"` {
		t.Errorf("panNumber = %s", raw["panNumber"])
	}
}

func TestCheckDedupe_ErrorConditionsCollapseToAPIError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
		}},
		{"missing dedupe flag", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			outcome := newTestClient(srv.URL).CheckDedupe(context.Background(), "9876543210", "")
			if outcome.Status != domain.StatusFailed || outcome.Result != domain.ResultAPIError {
				t.Fatalf("got %+v, want FAILED/API_ERROR", outcome)
			}
		})
	}
}

func TestCheckDedupe_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	outcome := newTestClient(srv.URL).CheckDedupe(context.Background(), "9876543210", "")
	if outcome.Result != domain.ResultAPIError {
		t.Fatalf("got %+v, want API_ERROR", outcome)
	}
}

func TestCreateLead_Success(t *testing.T) {
	var gotSource string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != createLeadPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotSource = r.Header.Get("sourceid")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Lead generated successfully",
			"leadId":  "cs-lead-42",
			"utmLink": "https://creditsea.com/apply?utm=abc",
		})
	}))
	defer srv.Close()

	outcome := newTestClient(srv.URL).CreateLead(context.Background(), validLeadRow())

	if outcome.Status != domain.StatusSuccess || outcome.Result != domain.ResultLeadCreated {
		t.Fatalf("got %+v, want SUCCESS/LEAD_CREATED", outcome)
	}
	if outcome.LeadID != "cs-lead-42" || outcome.UTMLink != "https://creditsea.com/apply?utm=abc" {
		t.Errorf("lead_id/utm_link not carried: %+v", outcome)
	}
	if gotSource != "85674567" {
		t.Errorf("sourceid header = %q", gotSource)
	}
	if gotBody["gender"] != "female" || gotBody["employmentType"] != "salaried" {
		t.Errorf("gender/employmentType not lowercased: %v", gotBody)
	}
}

func TestCreateLead_MissingFieldSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	row := validLeadRow()
	delete(row, "pinCode")

	outcome := newTestClient(srv.URL).CreateLead(context.Background(), row)

	if outcome.Status != domain.StatusFailed || outcome.Result != domain.ResultValidationError {
		t.Fatalf("got %+v, want FAILED/VALIDATION_ERROR", outcome)
	}
	if outcome.Message != "Missing field: pinCode" {
		t.Errorf("message = %q", outcome.Message)
	}
	if called {
		t.Error("network call made despite missing field")
	}
}

func TestCreateLead_SuccessMarkerRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Lead queued"})
	}))
	defer srv.Close()

	outcome := newTestClient(srv.URL).CreateLead(context.Background(), validLeadRow())

	if outcome.Status != domain.StatusFailed || outcome.Result != domain.ResultAPIRejected {
		t.Fatalf("HTTP 200 without the marker must reject, got %+v", outcome)
	}
	if outcome.Message != "Lead queued" {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestCreateLead_HTTPErrorWithBodyIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "PAN already registered"})
	}))
	defer srv.Close()

	outcome := newTestClient(srv.URL).CreateLead(context.Background(), validLeadRow())

	if outcome.Result != domain.ResultAPIRejected {
		t.Fatalf("got %+v, want API_REJECTED", outcome)
	}
	if outcome.Message != "PAN already registered" {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestCreateLead_TransportFailureIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	outcome := newTestClient(srv.URL).CreateLead(context.Background(), validLeadRow())
	if outcome.Result != domain.ResultAPIError {
		t.Fatalf("got %+v, want API_ERROR", outcome)
	}
}
