// Package form validates submitted form values.
//
// A Schema lists fields and their validators. Validate runs every field's
// validators in order and keeps the first failure per field:
//
//	schema := form.NewSchema(
//	    form.Field("email", form.Required("Enter a valid email address"), form.Email("Enter a valid email address")),
//	    form.Field("password", form.Required("Password is required")),
//	)
//	if errs := schema.Validate(values); errs != nil {
//	    // errs["email"] holds the message to show next to the input
//	}
//
// Validators other than Required pass empty values so that messages stay
// specific to the problem.
package form
