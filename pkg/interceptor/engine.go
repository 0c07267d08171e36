package interceptor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/aiguard/pkg/audit"
	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/policy"
	"mercator-hq/aiguard/pkg/telemetry/logging"
	"mercator-hq/aiguard/pkg/telemetry/metrics"
	"mercator-hq/aiguard/pkg/telemetry/tracing"
)

// Metrics receives interception and guard call observations.
// *metrics.Collector implements it.
type Metrics interface {
	RecordInterception(callType, phase, verdict string, duration time.Duration)
	RecordGuardCall(outcome string, duration time.Duration)
}

// Auditor receives one record per inspected decision.
// *audit.Recorder implements it.
type Auditor interface {
	Record(ctx context.Context, record *audit.Record)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithAuditor sets the audit sink.
func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

// WithTracer sets the tracer used for guard call spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Engine runs the interception flow against a fixed rule set.
type Engine struct {
	rules     *policy.Set
	overrides []config.HeaderOverride
	guard     guard.Guard
	logger    *slog.Logger

	metrics Metrics
	auditor Auditor
	tracer  *tracing.Tracer
}

// New creates an engine. rules and g must not be nil.
func New(rules *policy.Set, g guard.Guard, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		rules:     rules,
		overrides: rules.HeaderOverrides(),
		guard:     g,
		logger:    logger.With("component", "interceptor"),
		metrics:   nopMetrics{},
		tracer:    tracing.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Intercept is the request hook. It returns req, possibly with replaced
// messages, or a *RejectionError.
func (e *Engine) Intercept(ctx context.Context, req *Request, callType CallType) (*Request, error) {
	if req == nil {
		return nil, nil
	}
	return e.Enforce(req, e.Evaluate(ctx, req, callType))
}

// Evaluate runs the request phase without changing req.
func (e *Engine) Evaluate(ctx context.Context, req *Request, callType CallType) *Decision {
	return e.evaluate(ctx, req, callType, PhaseRequest, req.Messages)
}

// Enforce applies d to req. Rewritten replaces req.Messages in place.
func (e *Engine) Enforce(req *Request, d *Decision) (*Request, error) {
	switch d.Verdict {
	case Blocked:
		return nil, blockRejection(d)
	case Rewritten:
		req.Messages = d.Messages
		return req, nil
	case Failed:
		if d.AllowOnError() {
			return req, nil
		}
		return nil, newRejection(KindGuardFailure, GenericRejection, d.Cause)
	default:
		return req, nil
	}
}

// InterceptResponse runs the response phase over the conversation plus the
// model's reply. It returns the reply, with its content replaced when the
// guard rewrote it, or a *RejectionError.
func (e *Engine) InterceptResponse(ctx context.Context, req *Request, callType CallType, reply guard.Message) (guard.Message, error) {
	conversation := make([]guard.Message, 0, len(req.Messages)+1)
	conversation = append(conversation, req.Messages...)
	conversation = append(conversation, reply)

	d := e.evaluate(ctx, req, callType, PhaseResponse, conversation)

	switch d.Verdict {
	case Blocked:
		return reply, blockRejection(d)
	case Rewritten:
		reply.Content = d.Messages[len(d.Messages)-1].Content
		return reply, nil
	case Failed:
		if d.AllowOnError() {
			return reply, nil
		}
		return reply, newRejection(KindGuardFailure, GenericRejection, d.Cause)
	default:
		return reply, nil
	}
}

// HasPhase reports whether a request for model has an active operation in
// phase. The proxy uses it to skip buffering responses nobody inspects.
func (e *Engine) HasPhase(model, phase string) bool {
	rule := e.rules.MatchRule(model)
	return rule != nil && rule.OperationParams(phase, "") != nil
}

func blockRejection(d *Decision) *RejectionError {
	msg := d.Summary
	if msg == "" {
		msg = GenericRejection
	}
	return newRejection(KindPolicyViolation, msg, nil)
}

func (e *Engine) evaluate(ctx context.Context, req *Request, callType CallType, phase string, messages []guard.Message) *Decision {
	start := time.Now()
	d := &Decision{Verdict: Allowed, CallType: callType, Phase: phase}
	defer func() { e.observe(ctx, req, d, start) }()

	if !callType.InScope() {
		d.Reason = "call type not inspected"
		return d
	}

	rule := e.rules.MatchRule(req.Model)
	if rule == nil {
		d.Reason = "no rule matched"
		return d
	}
	d.Rule = rule

	op := rule.OperationParams(phase, "")
	if op == nil {
		d.Reason = "no active " + phase + " operation"
		return d
	}

	op.SetRecipe(policy.ResolveRecipe(op, req.Metadata.Headers, e.overrides))
	op.Set("log_fields", LogFields(req.Model, req.Metadata.Endpoint))
	d.Recipe = op.Recipe()

	resp, err := e.callGuard(ctx, messages, op.Params(), d)
	if err != nil {
		d.Verdict = Failed
		d.Cause = err
		return d
	}

	d.Summary = resp.Summary
	switch {
	case resp.Result.Blocked:
		d.Verdict = Blocked
	case len(resp.Result.PromptMessages) > 0:
		d.Verdict = Rewritten
		d.Messages = append([]guard.Message(nil), resp.Result.PromptMessages...)
	}
	return d
}

// callGuard makes the single guard call for a decision. Panics inside the
// guard become a *guard.PanicError; a non-200 status becomes a
// *guard.StatusError even when the implementation did not report one.
func (e *Engine) callGuard(ctx context.Context, messages []guard.Message, params map[string]any, d *Decision) (resp *guard.Response, err error) {
	ctx, span := e.tracer.Start(ctx, "aiguard.guard_text",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrCallType, string(d.CallType)),
			attribute.String(tracing.AttrPhase, d.Phase),
			attribute.Int(tracing.AttrRuleIndex, d.RuleIndex()),
			attribute.String(tracing.AttrRecipe, d.Recipe),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, &guard.PanicError{Value: r}
		}
		outcome := guardOutcome(err)
		e.metrics.RecordGuardCall(outcome, time.Since(start))
		if resp != nil {
			tracing.SetGuardAttributes(span, resp.StatusCode, resp.Result.Blocked)
		}
		tracing.SetErrorAttributes(span, err, outcome)
	}()

	resp, err = e.guard.GuardText(ctx, messages, params)
	if err != nil {
		return resp, err
	}
	if resp == nil {
		return nil, &guard.ParseError{Cause: errors.New("guard returned no response")}
	}
	// StatusCode is zero for in-process guards that do not speak HTTP.
	if resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
		return resp, &guard.StatusError{StatusCode: resp.StatusCode, Summary: resp.Summary}
	}
	return resp, nil
}

func guardOutcome(err error) string {
	var (
		statusErr  *guard.StatusError
		timeoutErr *guard.TimeoutError
		parseErr   *guard.ParseError
		panicErr   *guard.PanicError
	)
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &statusErr):
		return metrics.OutcomeStatus
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.As(err, &parseErr):
		return metrics.OutcomeParse
	case errors.As(err, &panicErr):
		return metrics.OutcomePanic
	default:
		return metrics.OutcomeTransport
	}
}

func (e *Engine) observe(ctx context.Context, req *Request, d *Decision, start time.Time) {
	d.Duration = time.Since(start)
	e.metrics.RecordInterception(string(d.CallType), d.Phase, string(d.Verdict), d.Duration)

	if !d.CallType.InScope() {
		return
	}

	attrs := []any{
		"model", req.Model,
		"call_type", d.CallType,
		"phase", d.Phase,
		"verdict", d.Verdict,
		"rule_index", d.RuleIndex(),
		"duration_ms", d.Duration.Milliseconds(),
	}
	if d.Recipe != "" {
		attrs = append(attrs, "recipe", d.Recipe)
	}

	switch d.Verdict {
	case Allowed:
		if d.Reason != "" {
			attrs = append(attrs, "reason", d.Reason)
		}
		e.logger.DebugContext(ctx, "request allowed", attrs...)
	case Rewritten:
		e.logger.InfoContext(ctx, "guard rewrote messages", append(attrs, "messages", len(d.Messages))...)
	case Blocked:
		e.logger.WarnContext(ctx, "guard blocked request", append(attrs, "summary", d.Summary)...)
	case Failed:
		attrs = append(attrs, "error", d.Cause, "allow_on_error", d.AllowOnError())
		if d.AllowOnError() {
			e.logger.WarnContext(ctx, "guard call failed, allowing request", attrs...)
		} else {
			e.logger.ErrorContext(ctx, "guard call failed, rejecting request", attrs...)
		}
	}

	if e.auditor == nil {
		return
	}
	record := &audit.Record{
		RequestID:    logging.GetRequestID(ctx),
		Timestamp:    start,
		CallType:     string(d.CallType),
		Phase:        d.Phase,
		Verdict:      string(d.Verdict),
		Model:        req.Model,
		RuleIndex:    d.RuleIndex(),
		Recipe:       d.Recipe,
		Summary:      d.Summary,
		AllowOnError: d.AllowOnError(),
		LatencyMS:    d.Duration.Milliseconds(),
	}
	if d.Cause != nil {
		record.FailureCause = d.Cause.Error()
	}
	e.auditor.Record(ctx, record)
}

type nopMetrics struct{}

func (nopMetrics) RecordInterception(string, string, string, time.Duration) {}
func (nopMetrics) RecordGuardCall(string, time.Duration)                    {}
