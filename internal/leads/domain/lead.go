// Package domain holds the lead model and its pure validation and
// normalization rules. Nothing here touches the database or the network.
package domain

import (
	"time"

	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/phone"
)

// Status is the review state of a lead.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is one of the closed status values.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Canonical enum values. Gender and income mode tolerate pass-through of
// unrecognized input; profession is restricted to the closed set.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"

	ProfessionSalaried     = "Salaried"
	ProfessionSelfEmployed = "Self-Employed"
	ProfessionBusiness     = "Business"

	IncomeModeCheque       = "Cheque"
	IncomeModeBankTransfer = "Bank Transfer"
	IncomeModeCash         = "Cash"
)

// Lead is one person's profile record. A lead IS a user in the unified
// schema; phone_number is the globally unique natural key.
type Lead struct {
	ID            int64
	PhoneNumber   string
	FirstName     string
	LastName      string
	Email         *string
	PANNumber     string
	DateOfBirth   *time.Time
	Age           *int
	Gender        string
	City          string
	State         string
	PinCode       string
	Profession    string
	MonthlyIncome *float64
	BureauScore   *int
	IncomeMode    string
	ConsentTaken  bool
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CalculateAge derives a whole-year age from dob at the given instant,
// adjusting for whether the birthday has passed this year.
// Returns nil when dob is nil.
func CalculateAge(dob *time.Time, now time.Time) *int {
	if dob == nil {
		return nil
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return &age
}

// NormalizePhoneNumber strips non-digit characters and enforces the
// 10-digit subscriber rule. This is the sole identity check applied
// before any write.
func NormalizePhoneNumber(raw string) (string, error) {
	digits := phone.Digits(raw)
	if digits == "" {
		return "", apperr.Validation("phone_number is required")
	}
	if len(digits) != 10 {
		return "", apperr.Validationf("phone_number must be exactly 10 digits, got: %s", digits)
	}
	return digits, nil
}

// ValidatePinCode enforces the 6-digit pincode rule for non-empty values.
func ValidatePinCode(value string) error {
	if value == "" {
		return nil
	}
	if len(value) != 6 || phone.Digits(value) != value {
		return apperr.Validation("pin_code must be exactly 6 digits")
	}
	return nil
}
