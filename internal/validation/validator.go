// Package validation wraps go-playground/validator and carries field-level
// errors from any layer to the HTTP boundary.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned for malformed or rejected input.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewFieldError builds an Errors with a single field.
func NewFieldError(field, message string) *Errors {
	return &Errors{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error, creating e when nil.
func (e *Errors) Add(field, message string) *Errors {
	if e == nil {
		e = &Errors{}
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// AsErrors unwraps an *Errors from err.
func AsErrors(err error) (*Errors, bool) {
	var v *Errors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register username validation: %v", err))
	}

	return &Validator{validate: v}
}

// Struct validates s and returns *Errors for rule violations.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Errors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	sort.SliceStable(out.Fields, func(i, j int) bool {
		return out.Fields[i].Field < out.Fields[j].Field
	})
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long", fe.Param())
	case "eqfield":
		return "Confirmation does not match"
	case "username":
		return "May only contain letters, numbers and underscores"
	default:
		return fmt.Sprintf("Invalid value (failed on '%s')", fe.Tag())
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
