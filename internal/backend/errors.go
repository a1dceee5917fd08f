package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable is returned while the circuit breaker is open.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrInvalidResponse is returned when a required field is missing from a response.
	ErrInvalidResponse = errors.New("invalid backend response")
	// ErrTransport wraps failures to reach the backend or read its response:
	// refused connections, DNS errors, resets and client timeouts.
	ErrTransport = errors.New("backend unreachable")
	// ErrInvalidInput is returned before any request is sent.
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend %s: status %d", e.Op, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
