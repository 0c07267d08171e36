package audit

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the decision table. Timestamps are stored as Unix
// nanoseconds so both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    timestamp INTEGER NOT NULL,

    call_type TEXT NOT NULL,
    phase TEXT NOT NULL,
    verdict TEXT NOT NULL,

    model TEXT NOT NULL,
    rule_index INTEGER NOT NULL,
    recipe TEXT,

    summary TEXT,
    failure_cause TEXT,
    allow_on_error INTEGER NOT NULL DEFAULT 0,
    latency_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_verdict ON decisions(verdict);
CREATE INDEX IF NOT EXISTS idx_decisions_model ON decisions(model);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, strftime('%s', 'now'))`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`

const insertRecord = `
	INSERT OR REPLACE INTO decisions (
		id, request_id, timestamp,
		call_type, phase, verdict,
		model, rule_index, recipe,
		summary, failure_cause, allow_on_error, latency_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRecords = `
	SELECT id, request_id, timestamp,
		call_type, phase, verdict,
		model, rule_index, recipe,
		summary, failure_cause, allow_on_error, latency_ms
	FROM decisions
`

const deleteBefore = `DELETE FROM decisions WHERE timestamp < ?`
