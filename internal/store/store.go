// Package store is the SQLite persistence layer for room and NPC state,
// grounded on the Open/migrate pattern used throughout the retrieved
// corpus's sqlite storage packages: a single *sql.DB over the pure-Go
// modernc.org/sqlite driver, WAL journaling, and an ordered list of
// additive migrations applied once each and tolerant of "already
// exists" errors so repeated startups stay idempotent.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps a single SQLite connection used for all room and NPC
// persistence. The driver is opened with a single connection: SQLite
// under WAL still serializes writers, and this process is the only
// writer, so pooling adds nothing but contention risk.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// applies any migrations that have not yet run.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
