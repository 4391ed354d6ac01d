package authforms

import (
	"strings"

	"github.com/google/uuid"

	"github.com/meghaexpress/hub-dashboard/pkg/form"
)

// Form field names.
const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldFrom            = "from"
)

// Messages holds every user-facing string the forms produce.
type Messages struct {
	InvalidEmail       string
	PasswordRequired   string
	NameRequired       string
	NameTooLong        string
	PasswordTooShort   string
	PasswordComplexity string
	PasswordMismatch   string

	SignInSuccess string
	SignInFailed  string
	SignUpSuccess string
	SignUpFailed  string

	// BackendUnavailable replaces SignInFailed for network and server
	// errors when failures are distinguished.
	BackendUnavailable string
}

// DefaultMessages returns the dashboard's standard wording.
func DefaultMessages() Messages {
	return Messages{
		InvalidEmail:       "Enter a valid email address",
		PasswordRequired:   "Password is required",
		NameRequired:       "Name is required",
		NameTooLong:        "Name must be at most 100 characters",
		PasswordTooShort:   "Password must be at least 8 characters",
		PasswordComplexity: "Password must include uppercase, lowercase, number, and special character.",
		PasswordMismatch:   "Passwords do not match",

		SignInSuccess: "Signed in successfully!",
		SignInFailed:  "Invalid credentials, try again.",
		SignUpSuccess: "Account created successfully!",
		SignUpFailed:  "Error creating account, try again.",

		BackendUnavailable: "Service unavailable, try again later.",
	}
}

// MinPasswordLength is the shortest password sign-up accepts.
const MinPasswordLength = 8

// Length bounds for sign-up fields. Email follows the RFC 5321 path limit.
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
)

// SignInSchema validates the sign-in form.
func SignInSchema(m Messages) *form.Schema {
	return form.NewSchema(
		form.Field(FieldEmail, form.Required(m.InvalidEmail), form.Email(m.InvalidEmail)),
		form.Field(FieldPassword, form.NotEmpty(m.PasswordRequired)),
	)
}

// SignUpSchema validates the sign-up form.
func SignUpSchema(m Messages) *form.Schema {
	return form.NewSchema(
		form.Field(FieldName, form.Required(m.NameRequired), form.MaxLength(MaxNameLength, m.NameTooLong)),
		form.Field(FieldEmail,
			form.Required(m.InvalidEmail),
			form.MaxLength(MaxEmailLength, m.InvalidEmail),
			form.Email(m.InvalidEmail),
		),
		form.Field(FieldPassword,
			form.NotEmpty(m.PasswordTooShort),
			form.MinLength(MinPasswordLength, m.PasswordTooShort),
			form.PasswordComplexity(m.PasswordComplexity),
		),
		form.Field(FieldConfirmPassword, form.EqualTo(FieldPassword, m.PasswordMismatch)),
	)
}

// DefaultAccountIDPrefix starts every generated account id.
const DefaultAccountIDPrefix = "MEX"

// AccountIDs returns a generator of account ids: prefix followed by twelve
// upper-case hex characters from a random UUID.
func AccountIDs(prefix string) func() string {
	return func() string {
		hex := strings.ReplaceAll(uuid.NewString(), "-", "")
		return prefix + strings.ToUpper(hex[:12])
	}
}
