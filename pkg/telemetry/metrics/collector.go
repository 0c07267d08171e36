package metrics

import (
	"time"

	"mercator-hq/aiguard/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the proxy's Prometheus registry and every metric in it.
// A disabled collector accepts all calls and records nothing.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	interceptionMetrics *InterceptionMetrics

	guardMetrics *GuardMetrics

	requestMetrics *RequestMetrics
}

// NewCollector creates a collector for cfg. If registry is nil a fresh
// registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		enabled:             cfg.IsEnabled(),
		registry:            registry,
		interceptionMetrics: NewInterceptionMetrics(namespace, registry),
		guardMetrics:        NewGuardMetrics(namespace, registry),
		requestMetrics:      NewRequestMetrics(namespace, registry),
	}
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// RecordInterception records an interception decision.
//
// Parameters:
//   - callType: "completion", "text_completion", "embeddings", ...
//   - phase: "request" or "response"
//   - verdict: "allowed", "rewritten" or "blocked"
//   - duration: time from entry to decision
func (c *Collector) RecordInterception(callType, phase, verdict string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.interceptionMetrics.RecordInterception(callType, phase, verdict, duration)
}

// RecordGuardCall records a guard service call and its outcome.
func (c *Collector) RecordGuardCall(outcome string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.guardMetrics.RecordCall(outcome, duration)
}

// SetRules records the size of the rule set and how many rules were dropped.
func (c *Collector) SetRules(loaded, dropped int) {
	if !c.enabled {
		return
	}

	c.interceptionMetrics.SetRules(loaded, dropped)
}

// RecordRequest records a completed HTTP request.
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.requestMetrics.RecordRequest(route, status, duration)
}

// RecordUpstreamError records a failed upstream call.
func (c *Collector) RecordUpstreamError() {
	if !c.enabled {
		return
	}

	c.requestMetrics.RecordUpstreamError()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
