package form

import "testing"

func TestSchemaValidate(t *testing.T) {
	schema := NewSchema(
		Field("name", Required("Name is required")),
		Field("password", Required("Password is required"), MinLength(8, "too short"), PasswordComplexity("too weak")),
		Field("confirm", EqualTo("password", "Passwords do not match")),
	)

	errs := schema.Validate(Values{"name": "Asha", "password": "Abc123!@", "confirm": "Abc123!@"})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}

	errs = schema.Validate(Values{"password": "abc"})
	want := Errors{
		"name":     "Name is required",
		"password": "too short",
		"confirm":  "Passwords do not match",
	}
	if len(errs) != len(want) {
		t.Fatalf("errors = %v, want %v", errs, want)
	}
	for field, msg := range want {
		if errs[field] != msg {
			t.Errorf("%s: got %q, want %q", field, errs[field], msg)
		}
	}
	if !errs.Has("name") || errs.Has("missing") {
		t.Error("Has reports wrong fields")
	}
}

func TestSchemaValidateField(t *testing.T) {
	schema := NewSchema(Field("email", Email("bad email")))

	ve := schema.ValidateField("email", Values{"email": "nope"})
	if ve == nil || ve.Field != "email" || ve.Message != "bad email" {
		t.Fatalf("ValidateField = %+v", ve)
	}
	if ve := schema.ValidateField("unknown", Values{}); ve != nil {
		t.Fatalf("unknown field = %+v", ve)
	}
	if got := schema.Fields(); len(got) != 1 || got[0] != "email" {
		t.Fatalf("Fields = %v", got)
	}
}

func TestSchemaWrapsPlainErrors(t *testing.T) {
	schema := NewSchema(Field("code", ValidatorFunc(func(string, Values) error {
		return errString("plain failure")
	})))

	errs := schema.Validate(Values{})
	if errs["code"] != "plain failure" {
		t.Fatalf("errors = %v", errs)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
