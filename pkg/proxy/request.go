package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/proxy/types"
)

const (
	// DefaultMaxBodyBytes is the request body limit when none is configured.
	DefaultMaxBodyBytes = 10 * 1024 * 1024

	// AuthorizationHeader is the HTTP header for API key authentication.
	AuthorizationHeader = "Authorization"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// CompletionRequest is a parsed completion body together with the raw JSON
// it came from.
type CompletionRequest struct {
	CallType interceptor.CallType
	Parsed   types.CompletionRequest

	raw map[string]json.RawMessage
}

// ReadBody reads at most maxBytes of the request body.
func ReadBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}
	return body, nil
}

// ParseCompletionRequest decodes and validates a chat or text completion
// body.
func ParseCompletionRequest(body []byte, callType interceptor.CallType) (*CompletionRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	var parsed types.CompletionRequest
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid request: %v", err),
			Code:    types.CodeInvalidValue,
			Param:   "body",
		}
	}

	if err := parsed.Validate(callType == interceptor.CallCompletion); err != nil {
		if valErr, ok := err.(*types.ValidationError); ok {
			code := types.CodeInvalidValue
			if strings.HasSuffix(valErr.Message, "is required") {
				code = types.CodeMissingField
			}
			return nil, &RequestError{Message: valErr.Message, Code: code, Param: valErr.Field}
		}
		return nil, err
	}

	return &CompletionRequest{CallType: callType, Parsed: parsed, raw: raw}, nil
}

// Messages returns the guard view of the request: chat messages flattened
// to text, or the prompt as a single user message.
func (c *CompletionRequest) Messages() []guard.Message {
	if c.CallType != interceptor.CallCompletion {
		prompt, _ := types.PromptText(c.Parsed.Prompt)
		return []guard.Message{{Role: "user", Content: prompt}}
	}

	messages := make([]guard.Message, len(c.Parsed.Messages))
	for i, m := range c.Parsed.Messages {
		messages[i] = guard.Message{Role: m.Role, Content: m.Text()}
	}
	return messages
}

// InterceptRequest builds the engine input for r.
func (c *CompletionRequest) InterceptRequest(r *http.Request) *interceptor.Request {
	return &interceptor.Request{
		Model:    c.Parsed.Model,
		Messages: c.Messages(),
		Metadata: interceptor.Metadata{
			Headers:  ExtractHeaders(r),
			Endpoint: r.URL.Path,
		},
		Auth: ExtractAPIKey(r),
	}
}

// ApplyMessages writes guard-supplied messages back into the raw body.
// Chat messages keep their other fields when the count is unchanged. A text
// completion prompt becomes the messages' contents joined by newlines; an
// array prompt stays an array of the same length when the rewrite can be
// split back into one entry per prompt.
func (c *CompletionRequest) ApplyMessages(messages []guard.Message) error {
	if c.CallType != interceptor.CallCompletion {
		contents := make([]string, len(messages))
		for i, m := range messages {
			contents[i] = m.Content
		}
		if prompts, ok := c.Parsed.Prompt.([]any); ok {
			if batch := splitPrompts(contents, len(prompts)); batch != nil {
				return c.set("prompt", batch)
			}
		}
		return c.set("prompt", strings.Join(contents, "\n"))
	}

	var original []map[string]any
	if err := json.Unmarshal(c.raw["messages"], &original); err != nil {
		return fmt.Errorf("decode messages: %w", err)
	}

	var out []map[string]any
	if len(original) == len(messages) {
		out = original
		for i, m := range messages {
			out[i]["role"] = m.Role
			out[i]["content"] = m.Content
		}
	} else {
		out = make([]map[string]any, len(messages))
		for i, m := range messages {
			out[i] = map[string]any{"role": m.Role, "content": m.Content}
		}
	}

	c.Parsed.Messages = make([]types.Message, len(messages))
	for i, m := range messages {
		c.Parsed.Messages[i] = types.Message{Role: m.Role, Content: m.Content}
	}
	return c.set("messages", out)
}

// splitPrompts maps rewritten contents onto n batched prompts: one content
// per prompt, or a single content holding n newline-separated prompts.
// It returns nil when neither shape fits.
func splitPrompts(contents []string, n int) []string {
	switch {
	case len(contents) == n:
		return contents
	case len(contents) == 1:
		if parts := strings.Split(contents[0], "\n"); len(parts) == n {
			return parts
		}
	}
	return nil
}

func (c *CompletionRequest) set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	c.raw[key] = data
	return nil
}

// Body encodes the (possibly rewritten) request body.
func (c *CompletionRequest) Body() ([]byte, error) {
	return json.Marshal(c.raw)
}

// ExtractHeaders returns the request headers with lower-cased names. Multiple
// values are joined with ", ".
func ExtractHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return headers
}

// ExtractAPIKey extracts the API key from the Authorization header.
// It expects the format "Bearer <api-key>" following OpenAI conventions.
// If the header is missing or malformed, an empty string is returned.
func ExtractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
