// Package audit persists an append-only join/leave event log, additive to
// (never a replacement for) the world-persistence formats in package world.
// Nothing in the simulation core depends on reads from this package
// succeeding; it exists purely for after-the-fact inspection.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const (
	EventJoin  = "join"
	EventLeave = "leave"
)

// Event is one row of the audit log.
type Event struct {
	TimestampUnix int64
	Pid           int8
	Name          string
	Kind          string
}

// Log wraps a SQLite-backed append-only events table.
type Log struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite file at path and ensures the
// events table exists.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY,
		ts INTEGER NOT NULL,
		pid INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append records one event. Callers are expected to log and swallow any
// returned error rather than abort the tick.
func (l *Log) Append(ctx context.Context, ts int64, pid int8, name, kind string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events (ts, pid, name, kind) VALUES (?, ?, ?, ?)`,
		ts, pid, name, kind)
	return err
}

// Recent returns up to limit most recent events, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT ts, pid, name, kind FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.TimestampUnix, &e.Pid, &e.Name, &e.Kind); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
