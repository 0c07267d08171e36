package guard

import "context"

// Message is one chat message as exchanged with the guard service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Guard inspects text for policy violations.
//
// GuardText sends messages together with params (recipe, log_fields and any
// pass-through fields) and returns the service's verdict. A non-nil error
// means no verdict was obtained. Implementations must be safe for
// concurrent use and must bound the call duration.
type Guard interface {
	GuardText(ctx context.Context, messages []Message, params map[string]any) (*Response, error)
}

// Func adapts an ordinary function to the Guard interface.
type Func func(ctx context.Context, messages []Message, params map[string]any) (*Response, error)

// GuardText calls f.
func (f Func) GuardText(ctx context.Context, messages []Message, params map[string]any) (*Response, error) {
	return f(ctx, messages, params)
}

// Response is the decoded guard service envelope.
type Response struct {
	// StatusCode is the HTTP status the service answered with.
	StatusCode int `json:"-"`

	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status,omitempty"`

	// Summary is a human-readable description of what the detectors found.
	// It is surfaced verbatim when a request is blocked.
	Summary string `json:"summary,omitempty"`

	Result Result `json:"result"`
}

// Result is the verdict part of a Response.
type Result struct {
	// Blocked is set when the recipe decided the content must not proceed.
	Blocked bool `json:"blocked"`

	// Transformed is set when the service redacted or otherwise rewrote the
	// input.
	Transformed bool `json:"transformed,omitempty"`

	// PromptMessages is the replacement message sequence, if any.
	PromptMessages []Message `json:"prompt_messages,omitempty"`

	// Detectors carries per-detector findings. Opaque to this module.
	Detectors map[string]any `json:"detectors,omitempty"`
}
