package transport

import (
	"strconv"
	"time"

	"lending_crm_backend/internal/leads/domain"
)

// Request DTOs

// UpsertLeadRequest carries the strict API payload. Only phoneNumber is
// required; every other field is applied over the stored record when present.
type UpsertLeadRequest struct {
	PhoneNumber   string   `json:"phoneNumber" validate:"required,max=20,indianmobile"`
	FirstName     *string  `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName      *string  `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email         *string  `json:"email,omitempty" validate:"omitempty,email"`
	PANNumber     *string  `json:"panNumber,omitempty" validate:"omitempty,pan"`
	DateOfBirth   *string  `json:"dateOfBirth,omitempty"`
	Gender        *string  `json:"gender,omitempty" validate:"omitempty,max=30"`
	City          *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	State         *string  `json:"state,omitempty" validate:"omitempty,max=100"`
	PinCode       *string  `json:"pinCode,omitempty" validate:"omitempty,pincode"`
	Profession    *string  `json:"profession,omitempty" validate:"omitempty,max=50"`
	MonthlyIncome *float64 `json:"monthlyIncome,omitempty" validate:"omitempty,gte=0"`
	BureauScore   *int     `json:"bureauScore,omitempty" validate:"omitempty,gte=0,lte=900"`
	IncomeMode    *string  `json:"incomeMode,omitempty" validate:"omitempty,max=30"`
	ConsentTaken  *bool    `json:"consentTaken,omitempty"`
	Status        *string  `json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected"`
}

// ToRow flattens the request into the key/value shape the row normalizer
// consumes, so API writes and CSV rows go through identical validation.
func (r UpsertLeadRequest) ToRow() map[string]string {
	row := map[string]string{"phone_number": r.PhoneNumber}
	put := func(key string, v *string) {
		if v != nil {
			row[key] = *v
		}
	}
	put("first_name", r.FirstName)
	put("last_name", r.LastName)
	put("email", r.Email)
	put("pan_number", r.PANNumber)
	put("date_of_birth", r.DateOfBirth)
	put("gender", r.Gender)
	put("city", r.City)
	put("state", r.State)
	put("pin_code", r.PinCode)
	put("profession", r.Profession)
	put("income_mode", r.IncomeMode)
	put("status", r.Status)
	if r.MonthlyIncome != nil {
		row["monthly_income"] = strconv.FormatFloat(*r.MonthlyIncome, 'f', -1, 64)
	}
	if r.BureauScore != nil {
		row["bureau_score"] = strconv.Itoa(*r.BureauScore)
	}
	if r.ConsentTaken != nil {
		row["consent_taken"] = strconv.FormatBool(*r.ConsentTaken)
	}
	return row
}

// Response DTOs

type LeadResponse struct {
	ID            int64     `json:"id"`
	PhoneNumber   string    `json:"phoneNumber"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         *string   `json:"email,omitempty"`
	PANNumber     string    `json:"panNumber,omitempty"`
	DateOfBirth   *string   `json:"dateOfBirth,omitempty"`
	Age           *int      `json:"age,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	PinCode       string    `json:"pinCode,omitempty"`
	Profession    string    `json:"profession,omitempty"`
	MonthlyIncome *float64  `json:"monthlyIncome,omitempty"`
	BureauScore   *int      `json:"bureauScore,omitempty"`
	IncomeMode    string    `json:"incomeMode,omitempty"`
	ConsentTaken  bool      `json:"consentTaken"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func ToLeadResponse(lead domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:            lead.ID,
		PhoneNumber:   lead.PhoneNumber,
		FirstName:     lead.FirstName,
		LastName:      lead.LastName,
		Email:         lead.Email,
		PANNumber:     lead.PANNumber,
		Age:           lead.Age,
		Gender:        lead.Gender,
		City:          lead.City,
		State:         lead.State,
		PinCode:       lead.PinCode,
		Profession:    lead.Profession,
		MonthlyIncome: lead.MonthlyIncome,
		BureauScore:   lead.BureauScore,
		IncomeMode:    lead.IncomeMode,
		ConsentTaken:  lead.ConsentTaken,
		Status:        string(lead.Status),
		CreatedAt:     lead.CreatedAt,
		UpdatedAt:     lead.UpdatedAt,
	}
	if lead.DateOfBirth != nil {
		dob := lead.DateOfBirth.Format("2006-01-02")
		resp.DateOfBirth = &dob
	}
	return resp
}

// CSV import DTOs

// RowError records a single failed CSV row. Row numbering counts the header
// as row 1, so the first data row is row 2.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportSummary struct {
	Total   int        `json:"total"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors,omitempty"`
}

// StagedUploadResponse describes a CSV parked for review before import.
type StagedUploadResponse struct {
	StagingID string              `json:"stagingId"`
	FileName  string              `json:"fileName"`
	RowCount  int                 `json:"rowCount"`
	Columns   []string            `json:"columns"`
	Preview   []map[string]string `json:"preview"`
	ExpiresAt time.Time           `json:"expiresAt"`
}
