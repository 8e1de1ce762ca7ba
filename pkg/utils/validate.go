package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chezmonami/platform/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// FormatValidationError turns validator output into a field-level domain
// error. Errors of any other type are returned unchanged.
func FormatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	result := domain.NewValidationError()
	for _, fieldErr := range validationErrors {
		field := toSnakeCase(fieldErr.Field())

		switch fieldErr.Tag() {
		case "required":
			result.Add(field, fmt.Sprintf("%s is required", field))
		case "min":
			result.Add(field, fmt.Sprintf("%s must be at least %s", field, fieldErr.Param()))
		case "max":
			result.Add(field, fmt.Sprintf("%s must be at most %s", field, fieldErr.Param()))
		case "gt":
			result.Add(field, fmt.Sprintf("%s must be greater than %s", field, fieldErr.Param()))
		case "gte":
			result.Add(field, fmt.Sprintf("%s must be greater than or equal to %s", field, fieldErr.Param()))
		case "oneof":
			result.Add(field, fmt.Sprintf("%s must be one of [%s]", field, fieldErr.Param()))
		case "email":
			result.Add(field, fmt.Sprintf("%s must be a valid email", field))
		case "url":
			result.Add(field, fmt.Sprintf("%s must be a valid URL", field))
		default:
			result.Add(field, fmt.Sprintf("%s is invalid", field))
		}
	}

	return result
}

func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
