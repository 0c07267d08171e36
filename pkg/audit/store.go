package audit

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/aiguard/pkg/config"
)

// Store persists decision records.
type Store interface {
	// Save writes a record. Records with an existing ID are replaced.
	Save(ctx context.Context, record *Record) error

	// List returns matching records, newest first.
	List(ctx context.Context, filter Filter) ([]*Record, error)

	// Prune deletes records older than before and reports how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping reports whether the store can serve.
	Ping(ctx context.Context) error

	Close() error
}

// Open creates the store named by cfg.Backend.
func Open(cfg config.AuditConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, BackendSQLite3:
		sqlCfg := DefaultSQLiteConfig()
		sqlCfg.Driver = cfg.Backend
		if cfg.Path != "" {
			sqlCfg.Path = cfg.Path
		}
		return NewSQLiteStore(sqlCfg, logger)
	default:
		return nil, &UnknownBackendError{Backend: cfg.Backend}
	}
}
