package omdb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when OMDb answers Response "False", which it
	// does for unknown ids.
	ErrNotFound = errors.New("title not found")

	// ErrMissingAPIKey is returned before any request when no key is set.
	ErrMissingAPIKey = errors.New("omdb api key is required")

	// ErrRateLimit is returned for HTTP 429 and for OMDb's daily limit message.
	ErrRateLimit = errors.New("omdb request limit reached")
)

// HTTPError is a non-2xx response from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("omdb returned HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode exposes the status to retry classification.
func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

// APIError carries OMDb's Error field for Response "False" bodies.
type APIError struct {
	ID      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("omdb %s: %s", e.ID, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound
}
