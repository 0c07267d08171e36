package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/proxy"
	"mercator-hq/aiguard/pkg/proxy/types"
	"mercator-hq/aiguard/pkg/telemetry/logging"
)

// Engine is the policy engine as seen by the HTTP layer.
type Engine interface {
	Evaluate(ctx context.Context, req *interceptor.Request, callType interceptor.CallType) *interceptor.Decision
	Enforce(req *interceptor.Request, d *interceptor.Decision) (*interceptor.Request, error)
	InterceptResponse(ctx context.Context, req *interceptor.Request, callType interceptor.CallType, reply guard.Message) (guard.Message, error)
	HasPhase(model, phase string) bool
}

// Forwarder sends a request body to the upstream provider.
type Forwarder interface {
	Forward(ctx context.Context, r *http.Request, body []byte) (*http.Response, error)
}

// UpstreamMetrics counts failed upstream calls.
type UpstreamMetrics interface {
	RecordUpstreamError()
}

// Config holds the dependencies of a CompletionHandler.
type Config struct {
	Engine       Engine
	Upstream     Forwarder
	Metrics      UpstreamMetrics
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// CompletionHandler enforces policy on the OpenAI-compatible endpoints.
type CompletionHandler struct {
	engine       Engine
	upstream     Forwarder
	metrics      UpstreamMetrics
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewCompletionHandler creates a handler from cfg.
func NewCompletionHandler(cfg Config) *CompletionHandler {
	h := &CompletionHandler{
		engine:       cfg.Engine,
		upstream:     cfg.Upstream,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.metrics == nil {
		h.metrics = nopUpstreamMetrics{}
	}
	return h
}

// For returns the handler serving callType.
func (h *CompletionHandler) For(callType interceptor.CallType) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(r.Context(), w, types.NewErrorResponse(
				fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
				types.ErrorTypeMethodNotAllowed, "method", "method_not_allowed",
			))
			return
		}

		if callType.InScope() {
			h.handleInspected(w, r, callType)
			return
		}
		h.handlePassThrough(w, r, callType)
	})
}

func (h *CompletionHandler) handleInspected(w http.ResponseWriter, r *http.Request, callType interceptor.CallType) {
	ctx := r.Context()

	body, err := proxy.ReadBody(r, h.maxBodyBytes)
	if err != nil {
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	completion, err := proxy.ParseCompletionRequest(body, callType)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid completion request", "error", err)
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	model := completion.Parsed.Model
	ctx = logging.WithModel(ctx, model)

	ireq := completion.InterceptRequest(r)
	decision := h.engine.Evaluate(ctx, ireq, callType)
	if _, err := h.engine.Enforce(ireq, decision); err != nil {
		h.writeRejection(ctx, w, err)
		return
	}

	if decision.Verdict == interceptor.Rewritten {
		if err := completion.ApplyMessages(ireq.Messages); err != nil {
			h.logger.ErrorContext(ctx, "failed to apply rewritten messages", "error", err)
			h.writeError(ctx, w, types.NewServerError("An internal error occurred. Please try again later."))
			return
		}
		if body, err = completion.Body(); err != nil {
			h.logger.ErrorContext(ctx, "failed to encode rewritten request", "error", err)
			h.writeError(ctx, w, types.NewServerError("An internal error occurred. Please try again later."))
			return
		}
	}

	resp, err := h.forward(ctx, w, r, body)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	inspect := h.engine.HasPhase(model, interceptor.PhaseResponse)
	switch {
	case !inspect:
	case completion.Parsed.Stream:
		h.logger.DebugContext(ctx, "streaming response not inspected")
		inspect = false
	case resp.StatusCode != http.StatusOK:
		inspect = false
	}

	if !inspect {
		if err := proxy.CopyResponse(w, resp); err != nil {
			h.logger.WarnContext(ctx, "failed to copy upstream response", "error", err)
		}
		return
	}

	h.inspectResponse(ctx, w, resp, ireq, callType)
}

func (h *CompletionHandler) inspectResponse(ctx context.Context, w http.ResponseWriter, resp *http.Response, ireq *interceptor.Request, callType interceptor.CallType) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		h.metrics.RecordUpstreamError()
		h.logger.ErrorContext(ctx, "failed to read upstream response", "error", err)
		h.writeError(ctx, w, types.NewBadGatewayError("Upstream request failed"))
		return
	}

	reply, ok := proxy.ExtractReply(respBody, callType)
	if !ok {
		h.logger.WarnContext(ctx, "upstream response has no reply to inspect")
		h.writeBuffered(ctx, w, resp, respBody)
		return
	}

	checked, err := h.engine.InterceptResponse(ctx, ireq, callType, reply)
	if err != nil {
		h.writeRejection(ctx, w, err)
		return
	}

	if checked.Content != reply.Content {
		rewritten, err := proxy.ApplyReply(respBody, callType, checked)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to apply rewritten reply", "error", err)
			h.writeError(ctx, w, types.NewServerError("An internal error occurred. Please try again later."))
			return
		}
		respBody = rewritten
	}

	h.writeBuffered(ctx, w, resp, respBody)
}

func (h *CompletionHandler) handlePassThrough(w http.ResponseWriter, r *http.Request, callType interceptor.CallType) {
	ctx := r.Context()

	body, err := proxy.ReadBody(r, h.maxBodyBytes)
	if err != nil {
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	ireq := &interceptor.Request{
		Model: peekModel(body),
		Metadata: interceptor.Metadata{
			Headers:  proxy.ExtractHeaders(r),
			Endpoint: r.URL.Path,
		},
		Auth: proxy.ExtractAPIKey(r),
	}
	if _, err := h.engine.Enforce(ireq, h.engine.Evaluate(ctx, ireq, callType)); err != nil {
		h.writeRejection(ctx, w, err)
		return
	}

	resp, err := h.forward(ctx, w, r, body)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if err := proxy.CopyResponse(w, resp); err != nil {
		h.logger.WarnContext(ctx, "failed to copy upstream response", "error", err)
	}
}

// forward calls the upstream and writes the error response on failure.
func (h *CompletionHandler) forward(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte) (*http.Response, error) {
	resp, err := h.upstream.Forward(ctx, r, body)
	if err != nil {
		h.metrics.RecordUpstreamError()
		h.logger.ErrorContext(ctx, "upstream request failed", "error", err)
		h.writeError(ctx, w, proxy.HandleError(err))
		return nil, err
	}
	return resp, nil
}

func (h *CompletionHandler) writeRejection(ctx context.Context, w http.ResponseWriter, err error) {
	var rej *interceptor.RejectionError
	if !errors.As(err, &rej) {
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}
	if werr := proxy.WriteRejection(w, rej); werr != nil {
		h.logger.ErrorContext(ctx, "failed to write rejection", "error", werr)
	}
}

func (h *CompletionHandler) writeError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

func (h *CompletionHandler) writeBuffered(ctx context.Context, w http.ResponseWriter, resp *http.Response, body []byte) {
	if err := proxy.WriteBufferedResponse(w, resp, body); err != nil {
		h.logger.WarnContext(ctx, "failed to write response", "error", err)
	}
}

// peekModel returns the "model" field of a JSON body, or "" for anything
// else, such as multipart audio uploads.
func peekModel(body []byte) string {
	var probe struct {
		Model string `json:"model"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return ""
	}
	return probe.Model
}

type nopUpstreamMetrics struct{}

func (nopUpstreamMetrics) RecordUpstreamError() {}
