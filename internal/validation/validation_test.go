package validation

import "testing"

func TestIsValidEthAddress(t *testing.T) {
	valid := []string{
		"0x1234567890123456789012345678901234567890",
		"0xAbCdEf0123456789012345678901234567890123",
	}
	for _, addr := range valid {
		if !IsValidEthAddress(addr) {
			t.Errorf("expected %s to be valid", addr)
		}
	}

	invalid := []string{
		"",
		"0x123",
		"1234567890123456789012345678901234567890",
		"0x12345678901234567890123456789012345678zz",
	}
	for _, addr := range invalid {
		if IsValidEthAddress(addr) {
			t.Errorf("expected %s to be invalid", addr)
		}
	}
}

func TestParseWei(t *testing.T) {
	if n := ParseWei("100000000000000000"); n == nil || n.String() != "100000000000000000" {
		t.Errorf("ParseWei(1e17) = %v", n)
	}

	for _, s := range []string{"", "0", "-5", "1.5", "0.001", "1e18", " 100", "abc"} {
		if ParseWei(s) != nil {
			t.Errorf("ParseWei(%q) should be nil", s)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello\x00world  ", 100); got != "helloworld" {
		t.Errorf("SanitizeString = %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Errorf("SanitizeString truncation = %q", got)
	}
}

func TestSanitizeAddress(t *testing.T) {
	if got := SanitizeAddress(" 0xABC1234567890123456789012345678901234567 "); got != "0xabc1234567890123456789012345678901234567" {
		t.Errorf("SanitizeAddress = %q", got)
	}
	if got := SanitizeAddress("1234567890123456789012345678901234567890"); got != "0x1234567890123456789012345678901234567890" {
		t.Errorf("SanitizeAddress prefix = %q", got)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	errs := Validate(
		Required("title", ""),
		ValidWeiAmount("amount", "1.5"),
		ValidAddress("wallet", "nope"),
	)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	if errs.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestValidate_PassesCleanInput(t *testing.T) {
	errs := Validate(
		Required("title", "fix kitchen sink"),
		ValidWeiAmount("amount", "90000000000000000"),
		ValidAddress("wallet", "0x1234567890123456789012345678901234567890"),
		MaxLength("title", "fix kitchen sink", 200),
	)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}
