// Package tracing provides OpenTelemetry tracing for the AI Guard proxy.
//
// # Overview
//
// Each proxied request gets a server span. The interception engine opens a
// child span around every guard call and records the rule, recipe, verdict
// and guard status on it. Spans are exported over OTLP/gRPC and sampled with
// a parent-based trace ID ratio sampler.
//
// # Trace Context Propagation
//
// W3C Trace Context is extracted from inbound requests and injected into the
// upstream request:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Usage
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracing.HTTPMiddleware(tracer)(handler)
//
// When tracing is disabled New returns a noop tracer, so callers never need
// to check.
package tracing
