// Package server runs the HTTP front end of the guard proxy.
//
// It mounts the OpenAI-compatible completion routes, the health probes and
// the Prometheus endpoint on one listener, wraps them in the middleware
// chain and manages graceful shutdown.
//
// # Basic Usage
//
//	srv := server.NewServer(&cfg.Proxy, server.Options{
//	    Completions: handlers.NewCompletionHandler(deps),
//	    Health:      checker,
//	    Metrics:     collector,
//	    MetricsPath: cfg.Telemetry.Metrics.Path,
//	    Tracer:      tracer,
//	    Logger:      logger,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Start returns after SIGTERM, SIGINT, cancellation of its context or a
// call to Shutdown. Shutdown stops accepting connections and waits up to
// proxy.shutdown_timeout for in-flight requests.
//
// # Routes
//
//   - POST /v1/chat/completions, /chat/completions
//   - POST /v1/completions, /completions
//   - POST /v1/embeddings, /v1/images/generations, /v1/moderations,
//     /v1/audio/transcriptions
//   - GET /health, /ready, /version
//   - GET /metrics (path configurable)
//
// # Middleware Chain
//
// Outermost first: recovery, request ID, tracing, access logging.
package server
