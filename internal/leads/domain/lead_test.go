package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateAge_BirthdayPassed(t *testing.T) {
	dob := date(1990, time.March, 15)
	now := date(2026, time.August, 26)

	age := CalculateAge(&dob, now)
	if age == nil || *age != 36 {
		t.Fatalf("expected age 36, got %v", age)
	}
}

func TestCalculateAge_BirthdayNotYet(t *testing.T) {
	dob := date(1990, time.December, 1)
	now := date(2026, time.August, 26)

	age := CalculateAge(&dob, now)
	if age == nil || *age != 35 {
		t.Fatalf("expected age 35, got %v", age)
	}
}

func TestCalculateAge_SameDayBirthday(t *testing.T) {
	dob := date(2000, time.August, 26)
	now := date(2026, time.August, 26)

	age := CalculateAge(&dob, now)
	if age == nil || *age != 26 {
		t.Fatalf("expected age 26 on the birthday itself, got %v", age)
	}
}

func TestCalculateAge_NilDOB(t *testing.T) {
	if age := CalculateAge(nil, time.Now()); age != nil {
		t.Fatalf("expected nil age for nil dob, got %v", age)
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := NormalizePhoneNumber(" 98765-43210 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "9876543210" {
		t.Fatalf("expected 9876543210, got %s", got)
	}
}

func TestNormalizePhoneNumber_WrongLength(t *testing.T) {
	if _, err := NormalizePhoneNumber("12345"); err == nil {
		t.Fatal("expected error for 5-digit number")
	}
	if _, err := NormalizePhoneNumber("+91 9876543210"); err == nil {
		t.Fatal("expected error for 12-digit number after stripping")
	}
	if _, err := NormalizePhoneNumber(""); err == nil {
		t.Fatal("expected error for empty number")
	}
}

func TestValidatePinCode(t *testing.T) {
	if err := ValidatePinCode("110001"); err != nil {
		t.Fatalf("expected 110001 to be valid, got %v", err)
	}
	if err := ValidatePinCode(""); err != nil {
		t.Fatalf("empty pin is allowed, got %v", err)
	}
	for _, pin := range []string{"1100", "11000a", "1100011"} {
		if err := ValidatePinCode(pin); err == nil {
			t.Fatalf("expected %s to be rejected", pin)
		}
	}
}
