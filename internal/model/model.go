// Package model holds the shared data types for offices, agents, rooms,
// and NPC assignments described by the presence orchestrator's data model.
package model

import "time"

// Metadata is an opaque, free-form JSON value carried through the
// pipeline. Only a handful of well-known keys are ever parsed out of it;
// everything else passes through untouched.
type Metadata map[string]any

// Clone performs a deep copy of m via a JSON round-trip, matching the way
// the reconciler must not mutate an office's or agent's metadata in place.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out, err := cloneViaJSON(m)
	if err != nil {
		// Fall back to a shallow copy; malformed metadata shouldn't crash
		// the reconciler, it should just lose deep-clone safety for this
		// one value.
		shallow := make(Metadata, len(m))
		for k, v := range m {
			shallow[k] = v
		}
		return shallow
	}
	return out
}

// Position is a 2D world-space coordinate shared by players, NPCs, and
// spawn metadata.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Office is the Registry's declaration of a namespace this system hosts a
// room for.
type Office struct {
	OfficeID      string   `json:"officeId"`
	NamespaceSlug string   `json:"namespaceSlug"`
	Domain        string   `json:"domain,omitempty"`
	DisplayName   string   `json:"displayName,omitempty"`
	Metadata      Metadata `json:"metadata,omitempty"`
}

// AgentSpawn is the recognised subset of an agent's metadata.spawn block.
type AgentSpawn struct {
	Position      *Position `json:"position,omitempty"`
	WorkstationID string    `json:"workstationId,omitempty"`
	VoiceAgentID  string    `json:"voiceAgentId,omitempty"`
	Aliases       []string  `json:"aliases,omitempty"`
	Nickname      string    `json:"nickname,omitempty"`
	Default       bool      `json:"default,omitempty"`
}

// Agent is the Registry's declaration of a persona belonging to an office.
type Agent struct {
	ID              string   `json:"id"`
	AgentIdentifier string   `json:"agentIdentifier,omitempty"`
	AvatarID        string   `json:"avatarId,omitempty"`
	Role            string   `json:"role,omitempty"`
	AgentEmail      string   `json:"agentEmail,omitempty"`
	Metadata        Metadata `json:"metadata,omitempty"`
}

// NpcAssignment is the authoritative binding between an agent and a seat
// inside one room.
type NpcAssignment struct {
	AgentID         string   `json:"agentId"`
	RegistryAgentID string   `json:"registryAgentId,omitempty"`
	OfficeID        string   `json:"officeId,omitempty"`
	Name            string   `json:"name"`
	AvatarID        string   `json:"avatarId,omitempty"`
	WorkstationID   string   `json:"workstationId,omitempty"`
	Position        Position `json:"position"`
	Role            string   `json:"role"`
	ComputerID      string   `json:"computerId,omitempty"`
	VoiceAgentID    string   `json:"voiceAgentId,omitempty"`
	NamespaceSlug   string   `json:"namespaceSlug"`
	RoomID          string   `json:"roomId"`
	AssignedAt      string   `json:"assignedAt"`
	AgentMetadata   Metadata `json:"agentMetadata,omitempty"`
}

// Player is a live entity inside a room: a connected human or a seated
// NPC. The session key is "npc-"+agentId for NPCs and the raw transport
// session id for humans.
type Player struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Anim           string  `json:"anim"`
	Name           string  `json:"name"`
	ReadyToConnect bool    `json:"readyToConnect"`
	VideoConnected bool    `json:"videoConnected"`
}

// Resource is a shared-use object inside a room (a computer or a
// whiteboard) tracking which sessions are currently connected to it.
type Resource struct {
	ID            string          `json:"id"`
	ConnectedUser map[string]bool `json:"connectedUser"`
}

// NewResource returns an empty resource with the given id.
func NewResource(id string) Resource {
	return Resource{ID: id, ConnectedUser: make(map[string]bool)}
}

// ChatMessage is one entry in a room's replicated chat log.
type ChatMessage struct {
	SessionID string    `json:"sessionId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeRole maps a raw Registry role onto the canonical role this
// system understands. A blank role, and the legacy "office secretary"
// label, both normalise to "GM".
func NormalizeRole(role string) string {
	switch role {
	case "", "office secretary":
		return "GM"
	default:
		return role
	}
}

// NowISO returns the current time formatted the way assignedAt is stored:
// ISO-8601 UTC.
func NowISO(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// ParseAssignedAt parses an assignedAt string produced by NowISO back into
// a time.Time, returning the zero time if s is empty or malformed.
func ParseAssignedAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
