package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/policy"
	"mercator-hq/aiguard/pkg/proxy"
	"mercator-hq/aiguard/pkg/proxy/handlers"
	"mercator-hq/aiguard/pkg/telemetry/health"
	"mercator-hq/aiguard/pkg/telemetry/logging"
	"mercator-hq/aiguard/pkg/telemetry/metrics"
)

const serverPolicy = `
rules:
  - model: openai/gpt-4o
    ai_guard:
      request:
        parameters: {}
`

func newTestServer(t *testing.T, g guard.Guard) (*Server, *metrics.Collector) {
	t.Helper()

	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	t.Cleanup(upstreamSrv.Close)

	cfg, err := config.Parse([]byte(serverPolicy))
	if err != nil {
		t.Fatalf("failed to parse policy: %v", err)
	}
	upstream, err := proxy.NewUpstream(config.UpstreamConfig{BaseURL: upstreamSrv.URL}, nil)
	if err != nil {
		t.Fatalf("failed to create upstream: %v", err)
	}

	collector := metrics.NewCollector(config.MetricsConfig{}, nil)
	engine := interceptor.New(policy.NewSet(cfg, logging.Discard()), g, logging.Discard(), interceptor.WithMetrics(collector))

	checker := health.New(time.Second)
	checker.RegisterCheck("audit", func(context.Context) error { return nil })

	srv := NewServer(&config.ProxyConfig{
		ListenAddress:   "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	}, Options{
		Completions: handlers.NewCompletionHandler(handlers.Config{
			Engine:   engine,
			Upstream: upstream,
			Metrics:  collector,
			Logger:   logging.Discard(),
		}),
		Health:  checker,
		Metrics: collector,
		Logger:  logging.Discard(),
		Version: "test",
	})
	return srv, collector
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t, guard.Func(func(context.Context, []guard.Message, map[string]any) (*guard.Response, error) {
		return &guard.Response{StatusCode: 200}, nil
	}))
	h := srv.Handler()

	tests := []struct {
		method   string
		path     string
		body     string
		wantCode int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/version", "", http.StatusOK},
		{http.MethodPost, "/v1/chat/completions", `{"model":"openai/gpt-4o","messages":[{"role":"user","content":"hi"}]}`, http.StatusOK},
		{http.MethodPost, "/v1/embeddings", `{"model":"text-embedding-3-small","input":"hi"}`, http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("expected request ID header on every response")
			}
		})
	}
}

func TestServer_MetricsExposeDecisions(t *testing.T) {
	srv, _ := newTestServer(t, guard.Func(func(context.Context, []guard.Message, map[string]any) (*guard.Response, error) {
		return &guard.Response{StatusCode: 200, Summary: "blocked", Result: guard.Result{Blocked: true}}, nil
	}))
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"model":"openai/gpt-4o","messages":[{"role":"user","content":"hi"}]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`aiguard_interceptions_total{call_type="completion",phase="request",verdict="blocked"} 1`,
		`aiguard_guard_requests_total{outcome="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestServer_Lifecycle(t *testing.T) {
	srv, _ := newTestServer(t, guard.Func(func(context.Context, []guard.Message, map[string]any) (*guard.Response, error) {
		return nil, errors.New("unused")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Fatal("expected server running")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected error starting a running server")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("expected server stopped")
	}
}
