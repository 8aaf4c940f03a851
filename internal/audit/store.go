// Package audit manages a SQLite-backed append-only log of every
// non-reversible side effect a sync run performs: record creates, record
// deletes, and list reroutes. Unlike the link store (current-state only,
// overwritten each run), this log is append-only and keyed by run id, so an
// operator can answer "when did doc-AAA get created and by which run".
//
// Only this package may open or query the database. All other packages
// receive a [*Store] and call its methods.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT    NOT NULL,
    event_type  TEXT    NOT NULL,
    doc_uuid    TEXT    NOT NULL DEFAULT '',
    rem_uuid    TEXT    NOT NULL DEFAULT '',
    vault_id    TEXT    NOT NULL DEFAULT '',
    detail      TEXT    NOT NULL DEFAULT '',
    occurred_at TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_run_id   ON audit_events (run_id);
CREATE INDEX IF NOT EXISTS idx_audit_doc_uuid ON audit_events (doc_uuid) WHERE doc_uuid != '';
CREATE INDEX IF NOT EXISTS idx_audit_rem_uuid ON audit_events (rem_uuid) WHERE rem_uuid != '';
`

// EventType classifies an audit event.
type EventType string

const (
	// EventCreate records a new document or reminder counterpart.
	EventCreate EventType = "create"
	// EventDelete records a deduplication deletion.
	EventDelete EventType = "delete"
	// EventReroute records a reminder moving to a different list.
	EventReroute EventType = "reroute"
)

// Event is a single tracked side effect.
type Event struct {
	ID         int64
	RunID      string
	Type       EventType
	DocUUID    string
	RemUUID    string
	VaultID    string
	Detail     string
	OccurredAt time.Time
}

// Store is the SQLite-backed audit log.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the audit database:
// ~/.local/share/vaultsync/audit.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "vaultsync", "audit.db"), nil
}

// Open opens (or creates) the SQLite database at path, applies the schema,
// and configures WAL mode for better concurrent read performance.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	// Single writer to avoid SQLITE_BUSY under WAL — the engine appends
	// from one run at a time.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Record appends one event, stamping OccurredAt if unset.
func (s *Store) Record(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO audit_events
		    (run_id, event_type, doc_uuid, rem_uuid, vault_id, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		e.RunID, string(e.Type), e.DocUUID, e.RemUUID, e.VaultID, e.Detail,
		e.OccurredAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording audit event %s/%s: %w", e.Type, e.RunID, err)
	}
	return nil
}

// EventsForRun returns every event recorded under the given run id, in
// insertion order.
func (s *Store) EventsForRun(ctx context.Context, runID string) ([]Event, error) {
	const q = `
		SELECT id, run_id, event_type, doc_uuid, rem_uuid, vault_id, detail, occurred_at
		FROM audit_events WHERE run_id = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("querying events for run %q: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// EventsForDoc returns every event ever recorded against the given document
// uuid, across all runs, in insertion order — "when did doc-AAA get created
// and by which run".
func (s *Store) EventsForDoc(ctx context.Context, docUUID string) ([]Event, error) {
	const q = `
		SELECT id, run_id, event_type, doc_uuid, rem_uuid, vault_id, detail, occurred_at
		FROM audit_events WHERE doc_uuid = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q, docUUID)
	if err != nil {
		return nil, fmt.Errorf("querying events for doc %q: %w", docUUID, err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var eventType, occurredAt string
		if err := rows.Scan(&e.ID, &e.RunID, &eventType, &e.DocUUID, &e.RemUUID, &e.VaultID, &e.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit event row: %w", err)
		}
		e.Type = EventType(eventType)
		e.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
