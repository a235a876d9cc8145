package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skyoffice-presence/server/internal/model"
)

// Room is the persisted record of a namespace's SkyOffice room.
type Room struct {
	RoomID                string
	NamespaceSlug         string
	OfficeID              string
	Domain                string
	DisplayName           string
	PasswordHash          string
	AgentDomainIdentifier string
	Metadata              model.Metadata
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UpsertRoom inserts room, or replaces the existing row with the same
// room_id. created_at is preserved across replace by copying it in on
// conflict rather than overwriting it.
func (s *Store) UpsertRoom(ctx context.Context, r Room) error {
	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal room metadata: %w", err)
	}
	now := time.Now().UTC()
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO rooms (room_id, namespace_slug, office_id, domain, display_name, password_hash, agent_domain_identifier, metadata_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(room_id) DO UPDATE SET
	namespace_slug = excluded.namespace_slug,
	office_id = excluded.office_id,
	domain = excluded.domain,
	display_name = excluded.display_name,
	password_hash = excluded.password_hash,
	agent_domain_identifier = excluded.agent_domain_identifier,
	metadata_json = excluded.metadata_json,
	updated_at = excluded.updated_at
`,
		r.RoomID, r.NamespaceSlug, r.OfficeID, r.Domain, r.DisplayName, r.PasswordHash, r.AgentDomainIdentifier,
		string(metadataJSON), createdAt.Format(time.RFC3339), updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: upsert room %q: %w", r.RoomID, err)
	}
	return nil
}

// DeleteRoom removes the room row for roomID, if any.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("store: delete room %q: %w", roomID, err)
	}
	return nil
}

// ListRooms returns every persisted room.
func (s *Store) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT room_id, namespace_slug, office_id, domain, display_name, password_hash, agent_domain_identifier, metadata_json, created_at, updated_at
FROM rooms
`)
	if err != nil {
		return nil, fmt.Errorf("store: list rooms: %w", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan room: %w", err)
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

// TruncateRooms deletes every row in the rooms table.
func (s *Store) TruncateRooms(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms`); err != nil {
		return fmt.Errorf("store: truncate rooms: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (Room, error) {
	var r Room
	var metadataJSON, createdAt, updatedAt string
	if err := row.Scan(
		&r.RoomID, &r.NamespaceSlug, &r.OfficeID, &r.Domain, &r.DisplayName, &r.PasswordHash,
		&r.AgentDomainIdentifier, &metadataJSON, &createdAt, &updatedAt,
	); err != nil {
		return Room{}, err
	}
	if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
		return Room{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	parsedCreated, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Room{}, err
	}
	parsedUpdated, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return Room{}, err
	}
	r.CreatedAt, r.UpdatedAt = parsedCreated, parsedUpdated
	return r, nil
}
