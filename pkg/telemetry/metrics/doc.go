// Package metrics provides Prometheus metrics for the AI Guard proxy.
//
// # Metrics Categories
//
//   - Interception metrics: decisions by call type, phase and verdict; rule set size
//   - Guard metrics: guard service calls by outcome and their latency
//   - Request metrics: HTTP requests handled by the proxy and upstream failures
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//
//	collector.SetRules(len(set.Rules()), set.Dropped())
//	collector.RecordInterception("completion", "request", "blocked", 120*time.Millisecond)
//	collector.RecordGuardCall(metrics.OutcomeSuccess, 110*time.Millisecond)
//
//	mux.Handle("/metrics", collector.Handler())
//
// Every metric lives on the collector's own registry, so tests can build as
// many collectors as they like without clashing on the default registry.
package metrics
