package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Guard call outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeStatus    = "status_error"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport_error"
	OutcomeParse     = "parse_error"
	OutcomePanic     = "panic"
)

// GuardMetrics tracks calls to the guard service.
//
// Metrics:
//   - aiguard_guard_requests_total: Guard calls by outcome
//   - aiguard_guard_request_duration_seconds: Guard call latency
type GuardMetrics struct {
	requests *prometheus.CounterVec

	latency prometheus.Histogram
}

// NewGuardMetrics creates and registers guard metrics with the provided registry.
func NewGuardMetrics(namespace string, registry *prometheus.Registry) *GuardMetrics {
	gm := &GuardMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_requests_total",
				Help:      "Total number of guard service calls by outcome",
			},
			[]string{"outcome"},
		),

		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "guard_request_duration_seconds",
				Help:      "Guard service call latency in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}

	registry.MustRegister(
		gm.requests,
		gm.latency,
	)

	return gm
}

// RecordCall records one guard call.
func (gm *GuardMetrics) RecordCall(outcome string, duration time.Duration) {
	gm.requests.WithLabelValues(outcome).Inc()
	gm.latency.Observe(duration.Seconds())
}
