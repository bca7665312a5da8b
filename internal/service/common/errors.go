//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError describes a non-2xx response of the maintenance API.
type APIError struct {
	// Method is the HTTP method of the failed call.
	Method string
	// Path is the endpoint path relative to the API base.
	Path string
	// StatusCode is the HTTP status returned.
	StatusCode int
	// Body is the beginning of the response body.
	Body string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// IsUnavailable reports whether err means the endpoint is not provided by
// the backend (404 or 501), which best-effort callers tolerate.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusNotImplemented
}
