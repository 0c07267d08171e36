// Package telemetry groups the proxy's observability packages.
//
//   - logging: structured logging on log/slog with credential masking
//   - metrics: Prometheus metrics for interceptions, guard calls and HTTP traffic
//   - tracing: OpenTelemetry spans around requests and guard calls
//   - health: liveness, readiness and version probes
package telemetry
