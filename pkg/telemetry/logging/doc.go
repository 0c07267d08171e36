// Package logging builds the process logger.
//
// The logging package configures Go's log/slog with:
//   - JSON or text output
//   - the five levels used by the guard configuration: none, error, warn,
//     info and debug (none silences the logger)
//   - credential masking for bearer tokens, API keys and guard tokens
//   - request-scoped fields taken from the context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "request processed", "duration_ms", 12)
//	// {"level":"INFO","msg":"request processed","duration_ms":12,"request_id":"req-123"}
package logging
