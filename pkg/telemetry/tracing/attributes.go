package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "aiguard.*" namespace.
const (
	AttrModel     = "aiguard.model"
	AttrCallType  = "aiguard.call_type"
	AttrPhase     = "aiguard.phase"
	AttrRuleIndex = "aiguard.rule.index"
	AttrRecipe    = "aiguard.recipe"
	AttrVerdict   = "aiguard.verdict"
	AttrRequestID = "aiguard.request_id"

	AttrGuardStatus  = "aiguard.guard.status_code"
	AttrGuardBlocked = "aiguard.guard.blocked"
	AttrErrorType    = "aiguard.error.type"
)

// SetGuardAttributes records the guard call's answer on span.
func SetGuardAttributes(span trace.Span, statusCode int, blocked bool) {
	span.SetAttributes(
		attribute.Int(AttrGuardStatus, statusCode),
		attribute.Bool(AttrGuardBlocked, blocked),
	)
}

// SetErrorAttributes marks span as failed.
func SetErrorAttributes(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errorType != "" {
		span.SetAttributes(attribute.String(AttrErrorType, errorType))
	}
}
