package form

// FieldRules pairs a field name with its validators.
type FieldRules struct {
	Name       string
	Validators []Validator
}

// Field builds FieldRules.
func Field(name string, validators ...Validator) FieldRules {
	return FieldRules{Name: name, Validators: validators}
}

// Errors maps field names to the first failing message.
type Errors map[string]string

// Has reports whether field failed validation.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Schema is an ordered set of field rules.
type Schema struct {
	fields []FieldRules
}

// NewSchema creates a schema.
func NewSchema(fields ...FieldRules) *Schema {
	return &Schema{fields: fields}
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks values against every field. It returns nil when all
// fields pass.
func (s *Schema) Validate(values Values) Errors {
	var errs Errors
	for _, f := range s.fields {
		if err := s.validateField(f, values); err != nil {
			if errs == nil {
				errs = make(Errors)
			}
			errs[f.Name] = err.Message
		}
	}
	return errs
}

// ValidateField checks a single field.
func (s *Schema) ValidateField(name string, values Values) *ValidationError {
	for _, f := range s.fields {
		if f.Name == name {
			return s.validateField(f, values)
		}
	}
	return nil
}

func (s *Schema) validateField(f FieldRules, values Values) *ValidationError {
	value := values.Get(f.Name)
	for _, v := range f.Validators {
		err := v.Validate(value, values)
		if err == nil {
			continue
		}
		if ve, ok := err.(ValidationError); ok {
			ve.Field = f.Name
			return &ve
		}
		return &ValidationError{Field: f.Name, Message: err.Error()}
	}
	return nil
}
