package pagemeta

import (
	"errors"
	"fmt"
)

// ErrNoMetadata is returned when the extraction service has no metadata for a
// URL. Callers treat it as a soft success: the job completes without mutating
// the resource.
var ErrNoMetadata = errors.New("no metadata available for URL")

// ClientError wraps transport failures and non-2xx responses from the
// extraction service. These map to the upstream-error class: logged by the
// enrichment job, which still acknowledges the message.
type ClientError struct {
	Operation  string
	StatusCode int
	Err        error
}

// Error implements the error interface for ClientError.
func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pagemeta %s failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("pagemeta %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether the error came from the extraction service
// rather than from this process.
func IsUpstreamError(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr)
}
