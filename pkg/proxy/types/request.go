package types

import (
	"fmt"
	"strings"
)

// CompletionRequest holds the fields of a chat or text completion request
// that the proxy inspects.
type CompletionRequest struct {
	// Model is the ID of the model to use, e.g. "openai/gpt-4o".
	Model string `json:"model"`

	// Messages is the chat history. Empty for text completions.
	Messages []Message `json:"messages,omitempty"`

	// Prompt is the text completion prompt: a string or an array of strings.
	Prompt any `json:"prompt,omitempty"`

	// Stream enables server-sent events.
	Stream bool `json:"stream,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the author of the message ("system", "user", "assistant", "tool").
	Role string `json:"role"`

	// Content is a string or an array of content parts.
	Content any `json:"content"`

	Name string `json:"name,omitempty"`
}

// Text flattens Content to plain text. Text parts of a multimodal array are
// joined with a space; image and other parts are skipped.
func (m Message) Text() string {
	return ContentText(m.Content)
}

// ContentText flattens a message content value to plain text.
func ContentText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		var parts []string
		for _, part := range c {
			partMap, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if partMap["type"] != "text" {
				continue
			}
			if text, ok := partMap["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", c)
	}
}

// PromptText flattens a text completion prompt. Arrays are joined with
// newlines.
func PromptText(prompt any) (string, bool) {
	switch p := prompt.(type) {
	case string:
		return p, true
	case []any:
		lines := make([]string, 0, len(p))
		for _, item := range p {
			s, ok := item.(string)
			if !ok {
				return "", false
			}
			lines = append(lines, s)
		}
		return strings.Join(lines, "\n"), true
	default:
		return "", false
	}
}

// Validate checks the fields interception depends on.
func (r *CompletionRequest) Validate(chat bool) error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}

	if !chat {
		if _, ok := PromptText(r.Prompt); !ok {
			return &ValidationError{Field: "prompt", Message: "prompt must be a string or an array of strings"}
		}
		return nil
	}

	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "messages must contain at least one message"}
	}
	for i, msg := range r.Messages {
		if msg.Role == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		}
	}
	return nil
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
