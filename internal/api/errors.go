package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/service"
	"github.com/listas/listas-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrResourceNotFound),
		errors.Is(err, store.ErrListNotFound),
		errors.Is(err, store.ErrIntegrationNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrSubscriptionExists):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrIntegrationSelfBinding),
		errors.Is(err, service.ErrEmptyImport),
		errors.Is(err, service.ErrUnsupportedImportFormat):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this resource"

	// Not found errors
	case errors.Is(err, store.ErrResourceNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrListNotFound):
		return "List not found"

	case errors.Is(err, store.ErrIntegrationNotFound):
		return "Integration not found"

	// Conflict errors
	case errors.Is(err, store.ErrSubscriptionExists):
		return "Subscription already exists"

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, domain.ErrIntegrationSelfBinding):
		return "Source and target lists must differ"

	case errors.Is(err, service.ErrEmptyImport):
		return "Import contains no valid URLs"

	case errors.Is(err, service.ErrUnsupportedImportFormat):
		return "Unsupported import format"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateResourceRequest.URL' Error:Field validation for 'URL' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return "Invalid " + field + ": " + getValidationTagMessage(tag)
				}
				return "Invalid " + field
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url":
		return "invalid URL format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "nefield":
		return "must differ from the related field"
	default:
		return "validation failed"
	}
}
