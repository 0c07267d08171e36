package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/aiguard/pkg/config"
)

func TestNewUpstream_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := NewUpstream(config.UpstreamConfig{BaseURL: base}, nil); err == nil {
			t.Errorf("expected error for base URL %q", base)
		}
	}
}

func TestUpstream_URL(t *testing.T) {
	u, err := NewUpstream(config.UpstreamConfig{BaseURL: "https://api.example.com/openai/"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := u.URL("/v1/chat/completions", "api-version=2"); got != "https://api.example.com/openai/v1/chat/completions?api-version=2" {
		t.Errorf("unexpected URL %q", got)
	}
}

func TestUpstream_Forward(t *testing.T) {
	var got *http.Request
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		apiKey   string
		wantAuth string
	}{
		{"client key passes through", "", "Bearer sk-client"},
		{"configured key replaces client key", "sk-upstream", "Bearer sk-upstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUpstream(config.UpstreamConfig{BaseURL: srv.URL, APIKey: tt.apiKey}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			in := httptest.NewRequest(http.MethodPost, "/v1/completions?x=1", strings.NewReader("ignored"))
			in.Header.Set("Authorization", "Bearer sk-client")
			in.Header.Set("Connection", "close")
			in.Header.Set("X-Custom", "kept")

			resp, err := u.Forward(context.Background(), in, []byte(`{"prompt":"rewritten"}`))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != http.StatusAccepted {
				t.Errorf("expected 202, got %d", resp.StatusCode)
			}
			if got.URL.Path != "/v1/completions" || got.URL.RawQuery != "x=1" {
				t.Errorf("unexpected upstream URL %s", got.URL)
			}
			if gotBody != `{"prompt":"rewritten"}` {
				t.Errorf("expected supplied body, got %q", gotBody)
			}
			if got.Header.Get("Authorization") != tt.wantAuth {
				t.Errorf("expected auth %q, got %q", tt.wantAuth, got.Header.Get("Authorization"))
			}
			if got.Header.Get("X-Custom") != "kept" {
				t.Error("expected end-to-end header forwarded")
			}
		})
	}
}

func TestUpstream_ForwardFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	u, err := NewUpstream(config.UpstreamConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = u.Forward(context.Background(), httptest.NewRequest(http.MethodPost, "/v1/embeddings", nil), nil)
	if _, ok := err.(*UpstreamError); !ok {
		t.Errorf("expected *UpstreamError, got %v", err)
	}
}
