// Package storage is the only package that touches persistent state.
// It owns the schema and the atomic claim/settle/heartbeat primitives
// that let multiple worker goroutines compete for jobs without losing
// or duplicating work.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a single SQLite database file holding the jobs,
// workers, and config tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures
// the schema exists. The DSN opts in to WAL journaling and to
// mattn/go-sqlite3's "_txlock=immediate" behavior, which makes every
// *sql.Tx begin with BEGIN IMMEDIATE instead of a deferred
// transaction. That single option is what makes ClaimOne's
// select-then-update atomic: once a transaction is open, no other
// connection can write until it commits or rolls back, so the SELECT
// and the following UPDATE in the same tx observe a consistent view
// with no other actor able to interleave a write. This is the
// spec's prescribed fallback for engines "without UPDATE ...
// RETURNING": a short exclusive transaction, retried by the caller's
// next poll tick on failure rather than in a busy loop here.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has one writer at a time; a single connection avoids
	// "database is locked" errors from database/sql's pool handing
	// out a second, otherwise-idle connection under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		command        TEXT NOT NULL,
		state          TEXT NOT NULL DEFAULT 'pending',
		attempts       INTEGER NOT NULL DEFAULT 0,
		max_retries    INTEGER NOT NULL DEFAULT 3,
		next_run_at    DATETIME NOT NULL,
		claimed_by     TEXT,
		claimed_at     DATETIME,
		lease_deadline DATETIME,
		last_error     TEXT,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_claim ON jobs(state, next_run_at, id);
	CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);

	CREATE TABLE IF NOT EXISTS workers (
		worker_id      TEXT PRIMARY KEY,
		pid            INTEGER NOT NULL,
		started_at     DATETIME NOT NULL,
		last_heartbeat DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return s.seedDefaultConfig(ctx)
}

// defaultConfig mirrors the environment/defaults table in the spec.
var defaultConfig = map[string]string{
	"poll_interval_ms":       "500",
	"base_backoff_seconds":   "2",
	"max_backoff_seconds":    "3600",
	"lease_duration_seconds": "60",
	"default_max_retries":    "3",
	"exec_timeout_seconds":   "30",
	"workers.stop":           "0",
}

func (s *Store) seedDefaultConfig(ctx context.Context) error {
	for k, v := range defaultConfig {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO config(key, value) VALUES(?, ?) ON CONFLICT(key) DO NOTHING`, k, v); err != nil {
			return err
		}
	}
	return nil
}

// sqliteTimeLayout is the format nullable DATETIME columns arrive in
// when scanned into sql.NullString. mattn/go-sqlite3 stores time.Time
// as "YYYY-MM-DD HH:MM:SS.NNNNNNNNN+ZZ:ZZ" and hands DATETIME columns
// back as time.Time; database/sql then formats that time.Time as
// RFC3339Nano when the scan target is a string.
const sqliteTimeLayout = time.RFC3339Nano

func scanNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
