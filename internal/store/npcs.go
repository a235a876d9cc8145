package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skyoffice-presence/server/internal/model"
)

// NPC is the persisted record of a Registry agent's assignment into a
// room, restored on process restart so NPCs rehydrate without waiting
// for the next reconciliation sweep.
type NPC struct {
	AgentID         string
	RegistryAgentID string
	OfficeID        string
	RoomID          string
	NamespaceSlug   string
	Name            string
	AvatarID        string
	WorkstationID   string
	PositionX       float64
	PositionY       float64
	Role            string
	ComputerID      string
	VoiceAgentID    string
	AssignedAt      time.Time
	Metadata        model.Metadata
}

func (s *Store) UpsertNPC(ctx context.Context, n NPC) error {
	metadataJSON, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal npc metadata: %w", err)
	}
	assignedAt := n.AssignedAt
	if assignedAt.IsZero() {
		assignedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO npcs (agent_id, registry_agent_id, office_id, room_id, namespace_slug, name, avatar_id, workstation_id, position_x, position_y, role, computer_id, voice_agent_id, assigned_at, metadata_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(agent_id) DO UPDATE SET
	registry_agent_id = excluded.registry_agent_id,
	office_id = excluded.office_id,
	room_id = excluded.room_id,
	namespace_slug = excluded.namespace_slug,
	name = excluded.name,
	avatar_id = excluded.avatar_id,
	workstation_id = excluded.workstation_id,
	position_x = excluded.position_x,
	position_y = excluded.position_y,
	role = excluded.role,
	computer_id = excluded.computer_id,
	voice_agent_id = excluded.voice_agent_id,
	assigned_at = excluded.assigned_at,
	metadata_json = excluded.metadata_json
`,
		n.AgentID, n.RegistryAgentID, n.OfficeID, n.RoomID, n.NamespaceSlug, n.Name, n.AvatarID, n.WorkstationID,
		n.PositionX, n.PositionY, n.Role, n.ComputerID, n.VoiceAgentID, assignedAt.Format(time.RFC3339), string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("store: upsert npc %q: %w", n.AgentID, err)
	}
	return nil
}

func (s *Store) DeleteNPC(ctx context.Context, agentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM npcs WHERE agent_id = ?`, agentID); err != nil {
		return fmt.Errorf("store: delete npc %q: %w", agentID, err)
	}
	return nil
}

func (s *Store) ListNPCs(ctx context.Context) ([]NPC, error) {
	return s.queryNPCs(ctx, `
SELECT agent_id, registry_agent_id, office_id, room_id, namespace_slug, name, avatar_id, workstation_id, position_x, position_y, role, computer_id, voice_agent_id, assigned_at, metadata_json
FROM npcs
`)
}

func (s *Store) ListNPCsByRoom(ctx context.Context, roomID string) ([]NPC, error) {
	return s.queryNPCs(ctx, `
SELECT agent_id, registry_agent_id, office_id, room_id, namespace_slug, name, avatar_id, workstation_id, position_x, position_y, role, computer_id, voice_agent_id, assigned_at, metadata_json
FROM npcs WHERE room_id = ?
`, roomID)
}

func (s *Store) TruncateNPCs(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM npcs`); err != nil {
		return fmt.Errorf("store: truncate npcs: %w", err)
	}
	return nil
}

func (s *Store) queryNPCs(ctx context.Context, query string, args ...any) ([]NPC, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query npcs: %w", err)
	}
	defer rows.Close()

	var out []NPC
	for rows.Next() {
		n, err := scanNPC(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan npc: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNPC(row rowScanner) (NPC, error) {
	var n NPC
	var assignedAt, metadataJSON string
	if err := row.Scan(
		&n.AgentID, &n.RegistryAgentID, &n.OfficeID, &n.RoomID, &n.NamespaceSlug, &n.Name, &n.AvatarID,
		&n.WorkstationID, &n.PositionX, &n.PositionY, &n.Role, &n.ComputerID, &n.VoiceAgentID, &assignedAt, &metadataJSON,
	); err != nil {
		return NPC{}, err
	}
	parsed, err := time.Parse(time.RFC3339, assignedAt)
	if err != nil {
		return NPC{}, err
	}
	n.AssignedAt = parsed
	if err := json.Unmarshal([]byte(metadataJSON), &n.Metadata); err != nil {
		return NPC{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return n, nil
}
