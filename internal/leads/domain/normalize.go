package domain

import (
	"strconv"
	"strings"
	"time"

	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/phone"
	"lending_crm_backend/platform/sanitize"
)

// PinPolicy selects how short pincodes are treated.
type PinPolicy int

const (
	// PinPolicyZeroPad left-pads shorter values to 6 digits (lead-CSV path).
	PinPolicyZeroPad PinPolicy = iota
	// PinPolicyStrict drops values that are not exactly 6 digits.
	PinPolicyStrict
)

// NormalizeOptions control per-caller policies of the row normalizer.
type NormalizeOptions struct {
	PinPolicy PinPolicy
	// Strict makes unparsable dates and invalid enum-ish values errors
	// instead of silently dropping them (direct create/update endpoints).
	Strict bool
}

// FieldMap is a typed normalized row: nil means "absent" and preserves the
// stored value on update; non-nil overwrites. Produced once by NormalizeRow
// and consumed everywhere downstream.
type FieldMap struct {
	FirstName     *string
	LastName      *string
	Email         *string
	PANNumber     *string
	DateOfBirth   *time.Time
	Gender        *string
	City          *string
	State         *string
	PinCode       *string
	Profession    *string
	MonthlyIncome *float64
	BureauScore   *int
	IncomeMode    *string
	ConsentTaken  *bool
	Status        *string
}

// dobFormats are attempted in priority order; the first successful parse wins.
var dobFormats = []string{"2006-01-02", "02-01-2006", "02/01/2006", "2006/01/02"}

var genderSynonyms = map[string]string{
	"m":      GenderMale,
	"male":   GenderMale,
	"f":      GenderFemale,
	"female": GenderFemale,
	"o":      GenderOther,
	"other":  GenderOther,
}

var professionSynonyms = map[string]string{
	"salaried":      ProfessionSalaried,
	"self employed": ProfessionSelfEmployed,
	"self_employed": ProfessionSelfEmployed,
	"self-employed": ProfessionSelfEmployed,
	"selfemployed":  ProfessionSelfEmployed,
	"business":      ProfessionBusiness,
}

var incomeModeSynonyms = map[string]string{
	"cheque":        IncomeModeCheque,
	"bank transfer": IncomeModeBankTransfer,
	"bank_transfer": IncomeModeBankTransfer,
	"banktransfer":  IncomeModeBankTransfer,
	"cash":          IncomeModeCash,
}

// NormalizeRow converts a raw string row (keys case-insensitive, values
// possibly empty) into the natural key plus a FieldMap ready for upsert.
// Only the phone number is a hard requirement; every other field follows
// the documented default/ignore policy for its type.
func NormalizeRow(raw map[string]string, opts NormalizeOptions) (string, FieldMap, error) {
	data := make(map[string]string, len(raw))
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		data[key] = value
	}

	phoneNumber, err := NormalizePhoneNumber(pick(data, "phone_number", "phonenumber", "mobile"))
	if err != nil {
		return "", FieldMap{}, err
	}

	var fields FieldMap

	if v := data["first_name"]; v != "" {
		fields.FirstName = strPtr(sanitize.Text(v))
	}
	if v := data["last_name"]; v != "" {
		fields.LastName = strPtr(sanitize.Text(v))
	}
	if v := data["email"]; v != "" {
		fields.Email = strPtr(v)
	}

	if v := pick(data, "pan_number", "pan"); v != "" {
		pan := strings.ToUpper(v)
		if err := ValidatePAN(pan); err != nil {
			return "", FieldMap{}, err
		}
		fields.PANNumber = &pan
	}

	if v := pick(data, "pin_code", "pincode"); v != "" {
		if pin, ok := normalizePin(v, opts.PinPolicy); ok {
			fields.PinCode = &pin
		} else if opts.Strict {
			return "", FieldMap{}, apperr.Validation("pin_code must be exactly 6 digits")
		}
	}

	if v := pick(data, "date_of_birth", "dob"); v != "" {
		if dob, ok := parseDOB(v); ok {
			fields.DateOfBirth = &dob
		} else if opts.Strict {
			return "", FieldMap{}, apperr.Validationf("unparsable date_of_birth: %s", v)
		}
	}

	if v := data["gender"]; v != "" {
		gender := v
		if mapped, ok := genderSynonyms[strings.ToLower(v)]; ok {
			gender = mapped
		}
		fields.Gender = &gender
	}

	if v := data["city"]; v != "" {
		fields.City = strPtr(sanitize.Text(v))
	}
	if v := data["state"]; v != "" {
		fields.State = strPtr(sanitize.Text(v))
	}

	if v := pick(data, "profession", "employment_type"); v != "" {
		if mapped, ok := professionSynonyms[strings.ToLower(v)]; ok {
			fields.Profession = &mapped
		} else if v == ProfessionSalaried || v == ProfessionSelfEmployed || v == ProfessionBusiness {
			fields.Profession = &v
		}
		// Unrecognized professions are dropped, not stored.
	}

	if v := pick(data, "monthly_income", "income"); v != "" {
		if income, ok := parseIncome(v); ok {
			fields.MonthlyIncome = &income
		}
	}

	if v := pick(data, "bureau_score", "credit_score"); v != "" {
		if score, err := strconv.Atoi(v); err == nil && score >= 0 && score <= 900 {
			fields.BureauScore = &score
		}
	}

	if v := data["income_mode"]; v != "" {
		mode := v
		if mapped, ok := incomeModeSynonyms[strings.ToLower(v)]; ok {
			mode = mapped
		}
		fields.IncomeMode = &mode
	}

	if v := pick(data, "consent_taken", "consent"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "y":
			fields.ConsentTaken = boolPtr(true)
		case "false", "0", "no", "n":
			fields.ConsentTaken = boolPtr(false)
		}
	}

	if v := data["status"]; v != "" {
		status := strings.ToLower(v)
		if ValidStatus(status) {
			fields.Status = &status
		} else if opts.Strict {
			return "", FieldMap{}, apperr.Validationf("invalid status: %s", v)
		}
	}

	return phoneNumber, fields, nil
}

// parseDOB attempts the supported date formats in fixed priority order.
func parseDOB(value string) (time.Time, bool) {
	for _, format := range dobFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseIncome strips currency symbols, commas and whitespace before parsing.
func parseIncome(value string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		default:
			return -1
		}
	}, value)
	if cleaned == "" {
		return 0, false
	}
	income, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return income, true
}

func normalizePin(value string, policy PinPolicy) (string, bool) {
	digits := phone.Digits(value)
	if len(digits) == 6 {
		return digits, true
	}
	if policy == PinPolicyZeroPad && digits != "" && len(digits) < 6 {
		return strings.Repeat("0", 6-len(digits)) + digits, true
	}
	return "", false
}

// pick returns the first non-empty value among the given keys.
func pick(data map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := data[key]; v != "" {
			return v
		}
	}
	return ""
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
