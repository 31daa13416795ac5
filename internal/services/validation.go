package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the struct tags and turns the first failure into a
// client-readable ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Internal(err)
	}
	return apperrors.Validation(fieldMessage(verrs[0])).Wrap(err)
}

func fieldMessage(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email address"
	case "min":
		if fe.Field() == "Password" {
			return fmt.Sprintf("weak password: must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// normalizeEmail trims surrounding space only. Emails are case-sensitive as
// stored.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
