package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns      []*redactPattern
	sensitiveKeys map[string]struct{}
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternPangeaToken = "pangea_token"
)

const redacted = "[REDACTED]"

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	r := &Redactor{
		sensitiveKeys: map[string]struct{}{
			"authorization": {},
			"token":         {},
			"api_key":       {},
			"apikey":        {},
			"password":      {},
			"secret":        {},
		},
	}

	r.patterns = []*redactPattern{
		{
			name:        PatternBearerToken,
			regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
			replacement: "Bearer ***",
		},
		{
			name:        PatternAPIKey,
			regex:       regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{8,}`),
			replacement: "sk-***",
		},
		{
			name:        PatternPangeaToken,
			regex:       regexp.MustCompile(`pts_[a-z0-9]{8,}`),
			replacement: "pts_***",
		},
	}

	return r
}

// RedactString applies all patterns to s.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Values of sensitive
// keys are replaced entirely; other string values have credentials masked.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if _, ok := r.sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if v := a.Value.String(); v != "" {
			if masked := r.RedactString(v); masked != v {
				return slog.String(a.Key, masked)
			}
		}
	}
	return a
}
