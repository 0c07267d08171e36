package proxy

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/aiguard/pkg/proxy/types"
)

// UpstreamError wraps a failure to reach the upstream provider.
type UpstreamError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request to %s failed: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// HandleError converts an error to an OpenAI-compatible error response.
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		var timeout interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeout) && timeout.Timeout()) {
			return types.NewGatewayTimeoutError("Upstream request timed out")
		}
		return types.NewBadGatewayError("Upstream request failed")
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
