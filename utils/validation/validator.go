package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance.
// Errors are reported under the json name of the field.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{
		validate: v,
	}
}

// Validate validates s and returns field errors, or nil when s is valid
func (v *Validator) Validate(s interface{}) map[string]string {
	if err := v.validate.Struct(s); err != nil {
		return FormatValidationErrors(err)
	}
	return nil
}

// FormatValidationErrors maps each failing field to one readable message
func FormatValidationErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": "is invalid"}
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = messageFor(e)
	}
	return fields
}

func messageFor(e validator.FieldError) string {
	field, param := e.Field(), e.Param()
	unit := ""
	if e.Kind() == reflect.String {
		unit = " characters"
	}

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email format"
	case "url":
		return "Invalid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	}
	return field + " is invalid"
}

// SanitizeString drops NUL bytes and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// SanitizeOptional sanitizes a nullable string, mapping blank to nil
func SanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	clean := SanitizeString(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
