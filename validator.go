package respenvelope

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// Count returns the total number of messages.
func (f FieldErrors) Count() int {
	n := 0
	for _, msgs := range f {
		n += len(msgs)
	}
	return n
}

func (f FieldErrors) clone() FieldErrors {
	if f == nil {
		return nil
	}
	out := make(FieldErrors, len(f))
	for k, v := range f {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ValidationError reports invalid input with per-field messages.
type ValidationError struct {
	Fields FieldErrors
	// Summary overrides the generated summary message.
	Summary string
	stack
}

// Validation creates a ValidationError from field messages.
func Validation(fields FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields.clone(), stack: callers(1)}
}

func (e *ValidationError) Error() string {
	if e.Summary != "" {
		return e.Summary
	}
	return summarize(e.Fields)
}

// summarize returns the first message in field order, followed by a count
// of the remaining ones.
func summarize(fields FieldErrors) string {
	if len(fields) == 0 {
		return KindValidation.DefaultMessage()
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var first string
	for _, name := range names {
		if len(fields[name]) > 0 {
			first = fields[name][0]
			break
		}
	}
	if first == "" {
		return KindValidation.DefaultMessage()
	}

	switch rest := fields.Count() - 1; {
	case rest == 1:
		return first + " (and 1 more error)"
	case rest > 1:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	}
	return first
}

// ValidationFromValidator converts go-playground validator errors into a
// ValidationError. Field names are the validator's namespace-free field
// names, lower-cased on the first letter.
func ValidationFromValidator(errs validator.ValidationErrors) *ValidationError {
	return &ValidationError{Fields: fieldsFromValidator(errs), stack: callers(1)}
}

func fieldsFromValidator(errs validator.ValidationErrors) FieldErrors {
	fields := make(FieldErrors, len(errs))
	for _, fe := range errs {
		name := fieldName(fe.Field())
		fields.Add(name, describe(name, fe))
	}
	return fields
}

func fieldName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func describe(name string, fe validator.FieldError) string {
	label := strings.ReplaceAll(name, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label)
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "numeric", "number":
		return fmt.Sprintf("The %s must be a number.", label)
	case "url":
		return fmt.Sprintf("The %s format is invalid.", label)
	}
	return fmt.Sprintf("The %s field failed the %s rule.", label, fe.Tag())
}

// asValidation extracts a ValidationError from err, converting validator
// errors on the way. Converted errors carry no stack: the validator did
// not record where it was called.
func asValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return &ValidationError{Fields: fieldsFromValidator(vErrs)}, true
	}
	return nil, false
}
