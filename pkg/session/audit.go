package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// AuditLog is the session manager's optional persistence layer: every
// create/expire/terminate transition is appended as a row.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (creating if absent) a SQLite database at path and
// ensures the session_audit_log table exists. modernc.org/sqlite is a pure
// Go driver, so this never requires cgo.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session audit db %q: %w", path, err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS session_audit_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		event      TEXT NOT NULL,
		session_id TEXT NOT NULL,
		occurred_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session audit schema: %w", err)
	}

	return &AuditLog{db: db}, nil
}

// Record appends one audit row for a create/expire/terminate transition.
func (a *AuditLog) Record(event, sessionID string, occurredAt time.Time) error {
	_, err := a.db.Exec(
		`INSERT INTO session_audit_log (event, session_id, occurred_at) VALUES (?, ?, ?)`,
		event, sessionID, occurredAt.Format(time.RFC3339Nano),
	)
	return err
}

// Close releases the underlying database handle.
func (a *AuditLog) Close() error {
	return a.db.Close()
}
