package proxy

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/telemetry/tracing"
)

// Upstream forwards requests to the model provider.
type Upstream struct {
	base   *url.URL
	apiKey string
	client *http.Client
}

// NewUpstream creates an Upstream from configuration. client may be nil.
func NewUpstream(cfg config.UpstreamConfig, client *http.Client) (*Upstream, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base_url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream base_url %q: scheme must be http or https", cfg.BaseURL)
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Upstream{base: base, apiKey: cfg.APIKey, client: client}, nil
}

// URL returns the upstream URL for an inbound path and query.
func (u *Upstream) URL(path, rawQuery string) string {
	target := *u.base
	target.Path = strings.TrimSuffix(u.base.Path, "/") + path
	target.RawPath = ""
	target.RawQuery = rawQuery
	return target.String()
}

// Forward sends body to the upstream with the inbound method, path, query
// and end-to-end headers. The caller closes the response body.
func (u *Upstream) Forward(ctx context.Context, in *http.Request, body []byte) (*http.Response, error) {
	target := u.URL(in.URL.Path, in.URL.RawQuery)

	req, err := http.NewRequestWithContext(ctx, in.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{URL: target, Cause: err}
	}

	copyHeaders(req.Header, in.Header)
	// The transport negotiates and decodes compression itself, which keeps
	// response bodies readable for inspection.
	req.Header.Del("Accept-Encoding")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.ContentLength = int64(len(body))
	if u.apiKey != "" {
		req.Header.Set(AuthorizationHeader, "Bearer "+u.apiKey)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: target, Cause: err}
	}
	return resp, nil
}
