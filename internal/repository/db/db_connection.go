package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// one writer: the orchestrator, the render loop and handlers share it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

const schemaPrinterState = `
CREATE TABLE IF NOT EXISTS printer_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    session TEXT NOT NULL,
    last_heartbeat TIMESTAMP,
    failures INTEGER NOT NULL,
    jobs_printed INTEGER NOT NULL,
    queued INTEGER NOT NULL,
    fatal BOOLEAN NOT NULL,
    last_error TEXT,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaPrinterEvents = `
CREATE TABLE IF NOT EXISTS printer_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL CHECK (type IN (
        'HEARTBEAT_OK', 'HEARTBEAT_FAILED', 'PRINTED', 'PRINT_FAILED',
        'RECOVERED', 'FATAL', 'REJECTED'
    )),
    job_id TEXT,
    message TEXT NOT NULL,
    meta TEXT
);
`

const schemaPrintJobs = `
CREATE TABLE IF NOT EXISTS print_jobs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    quantity INTEGER NOT NULL,
    error TEXT,
    bitmap BLOB NOT NULL
);
`

const schemaOperators = `
CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaPrinterState,
		schemaPrinterEvents,
		schemaPrintJobs,
		schemaOperators,
		`CREATE INDEX IF NOT EXISTS idx_print_jobs_created ON print_jobs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_printer_events_occurred ON printer_events(occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_printer_events_job ON printer_events(job_id);`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
