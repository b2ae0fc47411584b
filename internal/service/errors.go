package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrNotOwned indicates a resource or list is owned by a different user
	// than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrEmptyImport indicates an import payload yielded no valid URLs after
	// parsing. API layer should map this to HTTP 400 Bad Request.
	ErrEmptyImport = errors.New("import contains no valid URLs")

	// ErrUnsupportedImportFormat indicates an unknown import format value.
	// API layer should map this to HTTP 400 Bad Request.
	ErrUnsupportedImportFormat = errors.New("unsupported import format")
)
