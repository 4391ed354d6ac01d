package form

import (
	"fmt"
	"regexp"
	"strings"
)

// Values holds submitted form values by field name.
type Values map[string]string

// Get returns the value of field, or "" when absent.
func (v Values) Get(field string) string {
	return v[field]
}

// Validator checks one field value. values gives access to the rest of the
// form for cross-field rules.
type Validator interface {
	Validate(value string, values Values) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value string, values Values) error

func (f ValidatorFunc) Validate(value string, values Values) error {
	return f(value, values)
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// Required validates that the value is non-empty after trimming whitespace.
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value string, _ Values) error {
		if strings.TrimSpace(value) == "" {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// NotEmpty validates that the value is non-empty. Whitespace counts as
// content, so passwords made of spaces pass.
func NotEmpty(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value string, _ Values) error {
		if value == "" {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength validates that a string has at least n characters.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return ValidatorFunc(func(value string, _ Values) error {
		if value == "" {
			return nil // Let Required handle empty values
		}
		if len([]rune(value)) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return ValidatorFunc(func(value string, _ Values) error {
		if len([]rune(value)) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email validates that the value is a valid email address.
func Email(msg string) Validator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return ValidatorFunc(func(value string, _ Values) error {
		if value == "" {
			return nil
		}
		if !emailPattern.MatchString(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// EqualTo validates that the value equals another field's value.
func EqualTo(field string, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must match %s", field)
	}
	return ValidatorFunc(func(value string, values Values) error {
		if value != values.Get(field) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// PasswordComplexity requires at least one lowercase letter, one uppercase
// letter, one digit and one character that is none of those.
// Letters and digits are ASCII only.
func PasswordComplexity(msg string) Validator {
	if msg == "" {
		msg = "Password is too weak"
	}
	return ValidatorFunc(func(value string, _ Values) error {
		if value == "" {
			return nil
		}
		var lower, upper, digit, special bool
		for _, r := range value {
			switch {
			case r >= 'a' && r <= 'z':
				lower = true
			case r >= 'A' && r <= 'Z':
				upper = true
			case r >= '0' && r <= '9':
				digit = true
			default:
				special = true
			}
		}
		if !(lower && upper && digit && special) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}
