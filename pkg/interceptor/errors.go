package interceptor

import (
	"fmt"
	"net/http"
)

// GenericRejection is the detail returned when the guard fails closed. The
// real cause is only logged.
const GenericRejection = "Prompt has been rejected"

// RejectionKind separates content blocks from infrastructure failures.
type RejectionKind string

const (
	KindPolicyViolation RejectionKind = "policy_violation"
	KindGuardFailure    RejectionKind = "guard_failure"
)

// RejectionError is returned by Enforce and Intercept when a request must
// not proceed.
type RejectionError struct {
	StatusCode int
	Kind       RejectionKind

	// Detail is the caller-visible payload, always {"error": message}.
	Detail map[string]string

	// Cause is the guard failure behind a KindGuardFailure rejection.
	Cause error
}

func newRejection(kind RejectionKind, message string, cause error) *RejectionError {
	return &RejectionError{
		StatusCode: http.StatusBadRequest,
		Kind:       kind,
		Detail:     map[string]string{"error": message},
		Cause:      cause,
	}
}

// Error implements the error interface. It never includes the cause.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("request rejected (%s): %s", e.Kind, e.Message())
}

// Unwrap returns the underlying guard failure, if any.
func (e *RejectionError) Unwrap() error {
	return e.Cause
}

// Message is the caller-visible rejection text.
func (e *RejectionError) Message() string {
	return e.Detail["error"]
}
