package domain

import (
	"regexp"
	"strconv"
	"strings"

	"lending_crm_backend/platform/apperr"
)

// panPattern is the structural shape: 5 uppercase letters, 4 digits, 1 letter.
var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// panFourthChars is the set of allowed holder-type characters in position 4.
const panFourthChars = "PCHFATBGJL"

// ValidatePAN checks the 10-character PAN format:
//   - 5 uppercase letters, 4 digits, 1 uppercase letter
//   - 4th character restricted to the holder-type set
//   - digit part in the range 0001-9999
//
// Empty values pass; the field is optional.
func ValidatePAN(value string) error {
	if value == "" {
		return nil
	}

	if len(value) != 10 {
		return apperr.Validation("PAN must be exactly 10 characters")
	}

	if !panPattern.MatchString(value) {
		return apperr.Validation("PAN must have format: 5 uppercase letters, 4 digits, 1 uppercase letter")
	}

	if !strings.ContainsRune(panFourthChars, rune(value[3])) {
		return apperr.Validationf("PAN fourth character must be one of: %s", strings.Join(strings.Split(panFourthChars, ""), ", "))
	}

	digits, err := strconv.Atoi(value[5:9])
	if err != nil || digits < 1 || digits > 9999 {
		return apperr.Validation("PAN digits must be between 0001 and 9999")
	}

	return nil
}
