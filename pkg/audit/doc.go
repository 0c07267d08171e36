// Package audit keeps a trail of interception decisions.
//
// Every call to the guard, and every rule match that short-circuits without
// one, produces a Record. Records are written off the request path by a
// Recorder and land in a Store:
//
//   - "memory": process-local, lost on restart
//   - "sqlite": modernc.org/sqlite, pure Go
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// A Pruner deletes records older than the configured retention and a
// Scheduler runs it on a cron expression.
//
//	store, err := audit.Open(cfg.Audit, logger)
//	rec := audit.NewRecorder(store, cfg.Audit.AsyncBuffer, cfg.Audit.WriteTimeout, logger)
//	defer rec.Close()
package audit
