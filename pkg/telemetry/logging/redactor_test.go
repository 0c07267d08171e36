package logging

import (
	"log/slog"
	"testing"
)

func TestRedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bearer", "Authorization: Bearer abc.DEF-123", "Authorization: Bearer ***"},
		{"openai key", "key=sk-proj_abcdefgh123", "key=sk-***"},
		{"pangea token", "using pts_abcdefgh12345", "using pts_***"},
		{"short key untouched", "sk-abc", "sk-abc"},
		{"plain", "nothing to hide", "nothing to hide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReplaceAttr(t *testing.T) {
	r := NewRedactor()

	if got := r.ReplaceAttr(nil, slog.String("Authorization", "anything")); got.Value.String() != redacted {
		t.Errorf("expected sensitive key redacted, got %q", got.Value.String())
	}
	if got := r.ReplaceAttr(nil, slog.Int("token", 42)); got.Value.String() != redacted {
		t.Errorf("expected non-string sensitive value redacted, got %q", got.Value.String())
	}
	if got := r.ReplaceAttr(nil, slog.String("error", "upstream said Bearer xyz")); got.Value.String() != "upstream said Bearer ***" {
		t.Errorf("expected masked value, got %q", got.Value.String())
	}
	if got := r.ReplaceAttr(nil, slog.Int("status", 200)); got.Value.Int64() != 200 {
		t.Errorf("expected untouched attribute, got %v", got.Value)
	}
}
