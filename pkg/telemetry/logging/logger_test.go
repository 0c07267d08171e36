package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "none", want: LevelNone},
		{in: "error", want: slog.LevelError},
		{in: "warn", want: slog.LevelWarn},
		{in: "", want: slog.LevelWarn},
		{in: "INFO", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info record to be filtered")
	}
	if !strings.Contains(out, "shown") {
		t.Error("expected warn record to be written")
	}
}

func TestNew_NoneSilencesEverything(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "none", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Error("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := WithModel(WithRequestID(context.Background(), "req-123"), "openai/gpt-4o")
	logger.With("component", "test").InfoContext(ctx, "processed")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if record["request_id"] != "req-123" {
		t.Errorf("expected request_id, got %v", record["request_id"])
	}
	if record["model"] != "openai/gpt-4o" {
		t.Errorf("expected model, got %v", record["model"])
	}
	if record["component"] != "test" {
		t.Errorf("expected component, got %v", record["component"])
	}
}

func TestNew_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "text", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("calling upstream",
		"authorization", "Bearer abc.def",
		"detail", "key sk-abcdefghijklmnop used",
		"guard", "token pts_abcdefghijk",
	)

	out := buf.String()
	for _, secret := range []string{"abc.def", "sk-abcdefghijklmnop", "pts_abcdefghijk"} {
		if strings.Contains(out, secret) {
			t.Errorf("expected %q to be redacted in %q", secret, out)
		}
	}
	if !strings.Contains(out, "sk-***") || !strings.Contains(out, "pts_***") {
		t.Errorf("expected masked values in %q", out)
	}
}

func TestGetters_EmptyContext(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetModel(ctx) != "" {
		t.Error("expected empty values from bare context")
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("expected discard logger to be disabled")
	}
}
