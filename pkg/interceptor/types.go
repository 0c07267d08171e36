package interceptor

import (
	"time"

	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/policy"
)

// CallType tags what kind of model call the host is about to make.
type CallType string

const (
	CallCompletion         CallType = "completion"
	CallTextCompletion     CallType = "text_completion"
	CallEmbeddings         CallType = "embeddings"
	CallImageGeneration    CallType = "image_generation"
	CallModeration         CallType = "moderation"
	CallAudioTranscription CallType = "audio_transcription"
)

// InScope reports whether requests of this type are inspected at all.
func (c CallType) InScope() bool {
	return c == CallCompletion || c == CallTextCompletion
}

// Phase names.
const (
	PhaseRequest  = "request"
	PhaseResponse = "response"
)

// Metadata is host-supplied request context.
type Metadata struct {
	// Headers holds the inbound headers, keys lower-cased.
	Headers map[string]string

	// Endpoint is the inbound API path, e.g. "/v1/chat/completions".
	Endpoint string
}

// Request is the part of an inbound model call the engine reads.
type Request struct {
	Model    string
	Messages []guard.Message
	Metadata Metadata

	// Auth is the host's authentication context. Never read by the engine.
	Auth any
}

// Verdict is the outcome of one evaluation.
type Verdict string

const (
	// Allowed lets the request through unchanged.
	Allowed Verdict = "allowed"

	// Rewritten lets the request through with guard-supplied messages.
	Rewritten Verdict = "rewritten"

	// Blocked is a confirmed policy violation.
	Blocked Verdict = "blocked"

	// Failed means the guard could not give a verdict.
	Failed Verdict = "failed"
)

// Decision is the tagged result of Evaluate.
type Decision struct {
	Verdict  Verdict
	CallType CallType
	Phase    string

	// Rule is the matched rule, nil when none matched.
	Rule *policy.Rule

	// Recipe is the resolved recipe; empty when the guard was not called.
	Recipe string

	// Summary is the guard's summary text.
	Summary string

	// Messages is the replacement sequence when Verdict is Rewritten.
	Messages []guard.Message

	// Cause is set when Verdict is Failed.
	Cause error

	// Reason explains a pass-through without a guard call, e.g. "no rule".
	Reason string

	Duration time.Duration
}

// GuardCalled reports whether the decision involved a guard call.
func (d *Decision) GuardCalled() bool {
	return d.Recipe != ""
}

// AllowOnError reports the matched rule's fail-open flag.
func (d *Decision) AllowOnError() bool {
	return d.Rule != nil && d.Rule.AllowOnError()
}

// RuleIndex is the matched rule's position, or -1.
func (d *Decision) RuleIndex() int {
	if d.Rule == nil {
		return -1
	}
	return d.Rule.Index()
}
