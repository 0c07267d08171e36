package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InterceptionMetrics tracks interception decisions and the rule set.
//
// Metrics:
//   - aiguard_interceptions_total: Decisions by call type, phase and verdict
//   - aiguard_interception_duration_seconds: Time spent deciding, guard call included
//   - aiguard_rules_loaded: Number of matchable rules
//   - aiguard_rules_dropped_total: Rules ignored for lacking a model
type InterceptionMetrics struct {
	interceptionsTotal *prometheus.CounterVec

	interceptionDuration *prometheus.HistogramVec

	rulesLoaded prometheus.Gauge

	rulesDropped prometheus.Counter
}

// NewInterceptionMetrics creates and registers interception metrics with the provided registry.
func NewInterceptionMetrics(namespace string, registry *prometheus.Registry) *InterceptionMetrics {
	im := &InterceptionMetrics{
		interceptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interceptions_total",
				Help:      "Total number of interception decisions",
			},
			[]string{"call_type", "phase", "verdict"},
		),

		interceptionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "interception_duration_seconds",
				Help:      "Duration of interception decisions in seconds",
				// Pass-through decisions take microseconds, guarded ones a network round trip.
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
			},
			[]string{"phase"},
		),

		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rules_loaded",
				Help:      "Number of policy rules available for matching",
			},
		),

		rulesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_dropped_total",
				Help:      "Total number of policy rules ignored because they lack a model",
			},
		),
	}

	registry.MustRegister(
		im.interceptionsTotal,
		im.interceptionDuration,
		im.rulesLoaded,
		im.rulesDropped,
	)

	return im
}

// RecordInterception records one decision.
func (im *InterceptionMetrics) RecordInterception(callType, phase, verdict string, duration time.Duration) {
	im.interceptionsTotal.WithLabelValues(callType, phase, verdict).Inc()
	im.interceptionDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// SetRules records the outcome of building the rule set.
func (im *InterceptionMetrics) SetRules(loaded, dropped int) {
	im.rulesLoaded.Set(float64(loaded))
	if dropped > 0 {
		im.rulesDropped.Add(float64(dropped))
	}
}
