// Package middleware provides the HTTP middleware wrapped around the proxy
// handlers.
//
// # Middleware Chain
//
//	handler = Chain(handler,
//	    Recovery(logger),
//	    RequestID,
//	    tracing.HTTPMiddleware(tracer),
//	    Logging(logger, metrics, routeOf),
//	)
//
// The first middleware in the list is the outermost, so Recovery also
// catches panics raised inside logging or tracing.
//
// # Request ID
//
// RequestID reuses an inbound X-Request-ID header or generates a UUID v4.
// The ID is stored with logging.WithRequestID, so every log line emitted
// through the context-aware handler carries it, and it is copied into the
// audit record of each guard decision.
//
// # Logging
//
// Logging records one line per request and observes the request in the
// Prometheus collector under a bounded route label:
//
//	{
//	  "time": "2026-01-12T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/chat/completions",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// Status codes of 500 and above log at ERROR, 400 and above at WARN.
package middleware
