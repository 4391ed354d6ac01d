package form

import "testing"

func TestRequiredValidator(t *testing.T) {
	v := Required("")

	if err := v.Validate("", nil); err == nil {
		t.Error("Expected error for empty string")
	}
	if err := v.Validate("   ", nil); err == nil {
		t.Error("Expected error for whitespace-only string")
	}
	if err := v.Validate("hello", nil); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if err := Required("Name is required").Validate("", nil); err == nil || err.Error() != "Name is required" {
		t.Errorf("custom message = %v", err)
	}
}

func TestMinLengthValidator(t *testing.T) {
	v := MinLength(8, "")

	if err := v.Validate("short", nil); err == nil {
		t.Error("Expected error for 5 characters")
	}
	if err := v.Validate("exactly8", nil); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if err := v.Validate("", nil); err != nil {
		t.Error("Empty value should be left to Required")
	}
	// Runes, not bytes.
	if err := v.Validate("ééééééé", nil); err == nil {
		t.Error("7 runes should fail MinLength(8)")
	}
}

func TestMaxLengthValidator(t *testing.T) {
	v := MaxLength(3, "")
	if err := v.Validate("abcd", nil); err == nil {
		t.Error("Expected error for 4 characters")
	}
	if err := v.Validate("abc", nil); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestNotEmptyValidator(t *testing.T) {
	v := NotEmpty("")
	if err := v.Validate("", nil); err == nil {
		t.Error("Expected error for empty string")
	}
	if err := v.Validate("   ", nil); err != nil {
		t.Errorf("whitespace is content, got: %v", err)
	}
}

func TestEmailValidator(t *testing.T) {
	v := Email("Enter a valid email address")

	valid := []string{"user@example.com", "first.last+tag@sub.example.co"}
	for _, s := range valid {
		if err := v.Validate(s, nil); err != nil {
			t.Errorf("%q: unexpected error %v", s, err)
		}
	}
	invalid := []string{"user", "user@", "@example.com", "user@example", "user example@x.com"}
	for _, s := range invalid {
		if err := v.Validate(s, nil); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}

func TestEqualToValidator(t *testing.T) {
	v := EqualTo("password", "Passwords do not match")
	values := Values{"password": "Abc123!@"}

	if err := v.Validate("Abc123!@", values); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if err := v.Validate("Abc123!#", values); err == nil || err.Error() != "Passwords do not match" {
		t.Errorf("mismatch error = %v", err)
	}
}

func TestPasswordComplexity(t *testing.T) {
	v := PasswordComplexity("")

	tests := []struct {
		password string
		ok       bool
	}{
		{"Abc123!@", true},
		{"Abc123_x", true},
		{"Abc 123x", true},
		{"abc12345", false},
		{"ABC123!@", false},
		{"Abcdefg!", false},
		{"Abc12345", false},
	}
	for _, tt := range tests {
		err := v.Validate(tt.password, nil)
		if (err == nil) != tt.ok {
			t.Errorf("%q: err = %v, want ok=%v", tt.password, err, tt.ok)
		}
	}
}
