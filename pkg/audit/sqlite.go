package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// Backend names for the two SQLite drivers. They double as the
// database/sql driver names.
const (
	BackendSQLite  = "sqlite"
	BackendSQLite3 = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Driver is "sqlite" (modernc.org/sqlite) or "sqlite3" (mattn/go-sqlite3).
	Driver string

	// Path is the database file path, or ":memory:".
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10, forced to 1 for ":memory:".
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       BackendSQLite,
		Path:         "data/aiguard-audit.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on either SQLite driver.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger

	closeOnce sync.Once
}

// NewSQLiteStore opens the database and creates the schema.
func NewSQLiteStore(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Driver != BackendSQLite && cfg.Driver != BackendSQLite3 {
		return nil, &UnknownBackendError{Backend: cfg.Driver}
	}
	logger = logger.With("component", "audit.storage", "driver", cfg.Driver)

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Path == ":memory:" || maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit store initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", maxOpen,
	)

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	backend := s.config.Driver

	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError(backend, "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError(backend, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError(backend, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError(backend, "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError(backend, "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return NewStorageError(backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	return nil
}

// Save writes record, replacing any record with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	allowOnError := 0
	if record.AllowOnError {
		allowOnError = 1
	}

	_, err := s.db.ExecContext(ctx, insertRecord,
		record.ID, record.RequestID, record.Timestamp.UnixNano(),
		record.CallType, record.Phase, record.Verdict,
		record.Model, record.RuleIndex, record.Recipe,
		record.Summary, record.FailureCause, allowOnError, record.LatencyMS,
	)
	if err != nil {
		return NewStorageError(s.config.Driver, "save", err)
	}
	return nil
}

// List returns matching records, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	var where []string
	var args []any

	if !filter.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, filter.Until.UnixNano())
	}
	if filter.Verdict != "" {
		where = append(where, "verdict = ?")
		args = append(args, filter.Verdict)
	}
	if filter.Model != "" {
		where = append(where, "model = ?")
		args = append(args, filter.Model)
	}

	query := selectRecords
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "list", err)
	}
	defer rows.Close()

	results := make([]*Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError(s.config.Driver, "scan", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.config.Driver, "list", err)
	}
	return results, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record       Record
		requestID    sql.NullString
		recipe       sql.NullString
		summary      sql.NullString
		failureCause sql.NullString
		timestamp    int64
		allowOnError int64
	)

	err := rows.Scan(
		&record.ID, &requestID, &timestamp,
		&record.CallType, &record.Phase, &record.Verdict,
		&record.Model, &record.RuleIndex, &recipe,
		&summary, &failureCause, &allowOnError, &record.LatencyMS,
	)
	if err != nil {
		return nil, err
	}

	record.RequestID = requestID.String
	record.Timestamp = time.Unix(0, timestamp)
	record.Recipe = recipe.String
	record.Summary = summary.String
	record.FailureCause = failureCause.String
	record.AllowOnError = allowOnError != 0
	return &record, nil
}

// Prune deletes records older than before.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, deleteBefore, before.UnixNano())
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "prune", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.config.Driver, "prune", err)
	}
	return deleted, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.config.Driver, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
		s.logger.Info("audit store closed")
	})
	return err
}
