package guard

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingResult is the cause of a ParseError for a 200 answer without a
// result object.
var ErrMissingResult = errors.New("response has no result")

// StatusError is returned when the service answers with a non-200 status.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Summary is the service's summary field, if the body carried one.
	Summary string

	// Body is the raw response body, truncated.
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("guard returned status %d: %s", e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("guard returned status %d", e.StatusCode)
}

// TransportError wraps a failure to reach the service.
type TransportError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("guard request to %s failed: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// TimeoutError is returned when the call exceeds its deadline.
type TimeoutError struct {
	Timeout time.Duration
	Cause   error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("guard request timeout after %s", e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ParseError is returned when a 200 response cannot be decoded.
type ParseError struct {
	// RawResponse is the body that failed to parse, truncated.
	RawResponse string

	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("guard response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// PanicError reports a panic raised inside a Guard implementation.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("guard panicked: %v", e.Value)
}
