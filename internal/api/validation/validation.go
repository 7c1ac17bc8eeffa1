// Package validation provides request validation and custom validators.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/formbricks/zeroshot/internal/api/response"
)

// validate is safe for concurrent use once init has registered the custom
// validators. Do not register anything after init.
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report JSON field names rather than Go field names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := validate.RegisterValidation("no_null_bytes", validateNoNullBytes); err != nil {
		slog.Error("Failed to register no_null_bytes validator", "error", err)
	}
}

// ValidateStruct validates a struct using go-playground/validator
// Returns validation errors formatted as RFC 7807 Problem Details.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

// ValidationFailure carries the validator errors behind a failed ValidateStruct.
type ValidationFailure struct {
	message string
	errs    validator.ValidationErrors
}

func (e *ValidationFailure) Error() string { return e.message }

// Unwrap returns the underlying validator errors.
func (e *ValidationFailure) Unwrap() error { return e.errs }

// formatValidationErrors converts validator errors to a formatted error message
// that can be used in RFC 7807 Problem Details responses.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, formatFieldError(fieldError))
		}

		return &ValidationFailure{
			message: "validation failed: " + strings.Join(messages, "; "),
			errs:    validationErrors,
		}
	}

	return err
}

// formatFieldError formats a single field validation error.
func formatFieldError(fieldError validator.FieldError) string {
	field := fieldError.Namespace()
	if _, after, ok := strings.Cut(field, "."); ok {
		field = after
	}

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fieldError.Param())
	case "no_null_bytes":
		return field + " must not contain NULL bytes"
	default:
		return field + " is invalid"
	}
}

// GetValidationErrorDetails extracts field-level error details from validation errors
// Returns a slice of ErrorDetail for RFC 7807 Problem Details.
func GetValidationErrorDetails(err error) []response.ErrorDetail {
	var details []response.ErrorDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			details = append(details, response.ErrorDetail{
				Location: fieldError.Namespace(),
				Message:  formatFieldError(fieldError),
				Value:    fieldError.Value(),
			})
		}
	}

	return details
}

// RespondValidationError writes a validation error response with RFC 7807 Problem Details.
func RespondValidationError(w http.ResponseWriter, err error) {
	problem := response.ProblemDetails{
		Type:   "about:blank",
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
		Errors: GetValidationErrorDetails(err),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		slog.Error("Failed to encode validation error response", "error", err)
	}
}

// validateNoNullBytes checks that a string field does not contain NULL bytes
// Handles both string and *string types.
func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	if field.Kind() != reflect.String {
		return true
	}

	return !strings.Contains(field.String(), "\x00")
}
