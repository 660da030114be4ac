package domain

import "testing"

func TestValidatePAN_Valid(t *testing.T) {
	for _, pan := range []string{"ABCPM1234Z", "ZZZCA0001A", "AAAAH9999Z"} {
		if err := ValidatePAN(pan); err != nil {
			t.Fatalf("expected %s to be valid, got %v", pan, err)
		}
	}
}

func TestValidatePAN_InvalidFourthChar(t *testing.T) {
	if err := ValidatePAN("ABCQM1234Z"); err == nil {
		t.Fatal("expected Q in fourth position to be rejected")
	}
}

func TestValidatePAN_DigitRange(t *testing.T) {
	if err := ValidatePAN("ABCPM0000Z"); err == nil {
		t.Fatal("expected digit part 0000 to be rejected")
	}
	if err := ValidatePAN("ABCPM0001Z"); err != nil {
		t.Fatalf("expected digit part 0001 to be valid, got %v", err)
	}
}

func TestValidatePAN_WrongPattern(t *testing.T) {
	for _, pan := range []string{"ABC123456Z", "abcpm1234z", "ABCPM1234", "ABCPM12345Z"} {
		if err := ValidatePAN(pan); err == nil {
			t.Fatalf("expected %s to be rejected", pan)
		}
	}
}

func TestValidatePAN_EmptyAllowed(t *testing.T) {
	if err := ValidatePAN(""); err != nil {
		t.Fatalf("empty PAN should pass (optional field), got %v", err)
	}
}
