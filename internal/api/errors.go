package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/service"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// MapErrorToStatusCode maps service and domain errors to HTTP status codes
// without exposing their types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrNotStale):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, store.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, service.ErrNotStale):
		return "Job is still making progress; use force to recover it anyway"

	case errors.Is(err, service.ErrInvalidTransition):
		return "Job state does not allow this operation"

	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid job ID"

	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid job request"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message
// naming the first failing field. Other errors get a generic message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Validation error"
	}

	fe := validationErrs[0]
	field := fieldName(fe.Namespace())
	return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(fe.Tag()))
}

// fieldName converts "StartJobRequest.Units[2]" to "units[2]".
func fieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	return toSnake(namespace)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too few values"
	case "max":
		return "too many values"
	case "gt", "gte":
		return "must be positive"
	case "lte", "lt":
		return "too large"
	default:
		return "validation failed"
	}
}
