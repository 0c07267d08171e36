package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// TextGuardPath is the text inspection endpoint.
const TextGuardPath = "/v1/text/guard"

// cloudSuffix marks domains served by the hosted service, where each
// service has its own subdomain.
const cloudSuffix = ".pangea.cloud"

const (
	maxResponseBytes = 4 << 20
	maxErrorSnippet  = 512
)

// Config configures a Client.
type Config struct {
	// Service is the service subdomain, e.g. "ai-guard".
	Service string

	// Domain is the service domain, e.g. "aws.us.pangea.cloud". Domains not
	// ending in ".pangea.cloud" are treated as a local deployment and
	// addressed directly.
	Domain string

	// Insecure selects http instead of https.
	Insecure bool

	// Token is the bearer token.
	Token string

	// Timeout bounds a single call, including reading the response.
	Timeout time.Duration

	// BaseURL overrides the URL derived from Service, Domain and Insecure.
	BaseURL string

	// HTTPClient is used when set. Its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client is an HTTP Guard implementation.
type Client struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// BaseURL derives the service root for a domain.
func BaseURL(service, domain string, insecure bool) string {
	scheme := "https"
	if insecure {
		scheme = "http"
	}
	domain = strings.TrimSuffix(domain, "/")
	if strings.HasSuffix(domain, cloudSuffix) {
		return fmt.Sprintf("%s://%s.%s", scheme, service, domain)
	}
	return fmt.Sprintf("%s://%s", scheme, domain)
}

// NewClient creates a guard client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	base := cfg.BaseURL
	if base == "" {
		base = BaseURL(cfg.Service, cfg.Domain, cfg.Insecure)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}

	return &Client{
		url:     strings.TrimSuffix(base, "/") + TextGuardPath,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		client:  httpClient,
		logger:  logger.With("component", "guard"),
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// GuardText posts messages and params to the text guard endpoint. It makes
// exactly one attempt.
//
// A non-200 answer returns both the Response (with StatusCode set) and a
// *StatusError.
func (c *Client) GuardText(ctx context.Context, messages []Message, params map[string]any) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["messages"] = messages

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guard request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create guard request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("sending guard request", "url", c.url, "messages", len(messages))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	var out Response
	decodeErr := json.Unmarshal(raw, &out)
	out.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		return &out, &StatusError{
			StatusCode: resp.StatusCode,
			Summary:    out.Summary,
			Body:       truncate(string(raw), maxErrorSnippet),
		}
	}
	if decodeErr == nil {
		decodeErr = checkResult(raw)
	}
	if decodeErr != nil {
		return nil, &ParseError{
			RawResponse: truncate(string(raw), maxErrorSnippet),
			Cause:       decodeErr,
		}
	}

	c.logger.Debug("guard response received",
		"request_id", out.RequestID,
		"blocked", out.Result.Blocked,
		"transformed", out.Result.Transformed,
	)
	return &out, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Timeout: c.timeout, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Timeout: c.timeout, Cause: err}
	}
	return &TransportError{URL: c.url, Cause: err}
}

// checkResult rejects envelopes whose result object is absent or null.
func checkResult(raw []byte) error {
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return ErrMissingResult
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
