package audit

import "time"

// NoRule is the RuleIndex of a decision made without a matching rule.
const NoRule = -1

// Record is one interception decision.
type Record struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// CallType and Phase locate the decision, e.g. "completion"/"request".
	CallType string `json:"call_type"`
	Phase    string `json:"phase"`

	// Verdict is one of allowed, rewritten, blocked or failed.
	Verdict string `json:"verdict"`

	Model     string `json:"model"`
	RuleIndex int    `json:"rule_index"`
	Recipe    string `json:"recipe,omitempty"`

	// Summary is the guard's human-readable summary, if any.
	Summary string `json:"summary,omitempty"`

	// FailureCause is set when the guard call failed.
	FailureCause string `json:"failure_cause,omitempty"`

	AllowOnError bool  `json:"allow_on_error"`
	LatencyMS    int64 `json:"latency_ms"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Since   time.Time
	Until   time.Time
	Verdict string
	Model   string

	// Limit caps the result count. 0 means DefaultListLimit.
	Limit int
}

// DefaultListLimit is the List cap when Filter.Limit is zero.
const DefaultListLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (f Filter) matches(r *Record) bool {
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.Timestamp.Before(f.Until) {
		return false
	}
	if f.Verdict != "" && r.Verdict != f.Verdict {
		return false
	}
	if f.Model != "" && r.Model != f.Model {
		return false
	}
	return true
}
