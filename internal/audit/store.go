// Package audit persists a daemon's lifecycle events to a local SQLite
// database and exposes simple history queries, so an operator can answer
// "when did this last crash and why" after the fact.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relaywatch/daemonctl"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL,
    kind TEXT NOT NULL,
    at TEXT NOT NULL,
    detail TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_identifier ON events(identifier, at);`

// Store wraps a SQLite-backed event log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// runs the schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	// Mirrors the teacher's store: a single connection avoids SQLite's
	// "database is locked" errors under concurrent writers, and is
	// required for :memory: databases to share state across callers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one row for evt. A zero evt.ID is filled in with a
// freshly generated one, so callers that build an Event by hand (rather
// than through Handle.emit) still get a stable identifier.
func (s *Store) Record(evt daemonctl.Event) error {
	id := evt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.db.Exec(
		`INSERT INTO events (id, identifier, kind, at, detail) VALUES (?, ?, ?, ?, ?)`,
		id.String(), evt.Identifier, evt.Kind.String(), evt.At.UTC().Format(time.RFC3339Nano), evt.Detail,
	)
	return err
}

// History returns the most recent limit events for identifier, newest
// first. A non-positive limit returns the full history.
func (s *Store) History(identifier string, limit int) ([]daemonctl.Event, error) {
	query := `SELECT id, identifier, kind, at, detail FROM events WHERE identifier = ? ORDER BY at DESC, rowid DESC`
	args := []any{identifier}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []daemonctl.Event
	for rows.Next() {
		var id, identifier, kind, at, detail string
		if err := rows.Scan(&id, &identifier, &kind, &at, &detail); err != nil {
			return nil, err
		}
		parsedAt, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, err
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		events = append(events, daemonctl.Event{
			ID:         parsedID,
			Identifier: identifier,
			Kind:       parseKind(kind),
			At:         parsedAt,
			Detail:     detail,
		})
	}
	return events, rows.Err()
}

func parseKind(name string) daemonctl.EventKind {
	for _, k := range []daemonctl.EventKind{
		daemonctl.Starting, daemonctl.Started, daemonctl.StartFailed,
		daemonctl.Stopping, daemonctl.Stopped, daemonctl.StopFailed,
		daemonctl.Connecting, daemonctl.Connected, daemonctl.Aborting,
	} {
		if k.String() == name {
			return k
		}
	}
	return daemonctl.EventKind(-1)
}

// NewFileSink adapts s to daemonctl.EventSink, so it can be passed
// directly to daemonctl.WithEventSink or composed into a
// daemonctl.MultiSink alongside an eventbus.Hub. Write failures are
// logged, never surfaced to the Supervisor.
func NewFileSink(s *Store, logger func(format string, args ...any)) daemonctl.EventSink {
	return daemonctl.EventSinkFunc(func(evt daemonctl.Event) {
		if err := s.Record(evt); err != nil && logger != nil {
			logger("audit: record event for %s: %v", evt.Identifier, err)
		}
	})
}
