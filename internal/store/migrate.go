package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const migrationTable = "schema_migrations"

// migrations lists every schema statement this process has ever needed,
// in application order. New entries are always appended: existing
// numbers must never be reused or reordered, since they double as the
// migration's identity in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		room_id TEXT PRIMARY KEY,
		namespace_slug TEXT NOT NULL,
		office_id TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_namespace_slug ON rooms(namespace_slug)`,
	`CREATE TABLE IF NOT EXISTS npcs (
		agent_id TEXT PRIMARY KEY,
		registry_agent_id TEXT NOT NULL DEFAULT '',
		office_id TEXT NOT NULL DEFAULT '',
		room_id TEXT NOT NULL DEFAULT '',
		namespace_slug TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		avatar_id TEXT NOT NULL DEFAULT '',
		workstation_id TEXT NOT NULL DEFAULT '',
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		role TEXT NOT NULL DEFAULT '',
		computer_id TEXT NOT NULL DEFAULT '',
		voice_agent_id TEXT NOT NULL DEFAULT '',
		assigned_at TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_npcs_room_id ON npcs(room_id)`,
	// Additive column: rooms created before agent-domain-identifier
	// tracking was introduced. ALTER TABLE ... ADD COLUMN on a column
	// that already exists returns an error on sqlite; migrate() below
	// tolerates it so this statement is safe to keep permanently.
	`ALTER TABLE rooms ADD COLUMN agent_domain_identifier TEXT NOT NULL DEFAULT ''`,
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`, migrationTable,
	)); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for i, stmt := range migrations {
		id := i + 1
		applied, err := s.migrationApplied(ctx, id)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", id, err)
		}
		if applied {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil && !isAlreadyExistsError(err) {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (id, applied_at) VALUES (?, datetime('now'))", migrationTable), id,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", id, err)
		}
	}
	return nil
}

func (s *Store) migrationApplied(ctx context.Context, id int) (bool, error) {
	var found int
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", migrationTable), id)
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isAlreadyExistsError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}
