package room

import (
	"time"

	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/transport"
)

// npcSessionKey is the room-level players map key an NPC's agentID seats
// under, independent of any live transport connection.
func npcSessionKey(agentID string) string { return "npc-" + agentID }

// UpsertNPC creates or updates the NPC assignment for assignment.AgentID,
// seating it at its "npcSessionKey(agentID)" player entry and marking its
// resolved computer occupied — all independent of whether the agent has a
// live session connected. It is the entry point for both a fresh
// reconciler assignment and a periodic resync of an already-assigned
// NPC's metadata, and is what makes a deployed NPC visible in
// GET /api/rooms before any client ever connects for it.
func (r *Room) UpsertNPC(assignment model.NpcAssignment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.npcAssignments[assignment.AgentID] = &assignment

	key := npcSessionKey(assignment.AgentID)
	existing, hadSession := r.players[key]

	avatar := assignment.AvatarID
	if avatar == "" {
		avatar = "adam"
	}
	anim := avatar + "_idle_down"

	var session *transport.Session
	if hadSession {
		session = existing.session
		r.clearComputerOccupancyLocked(key)
	}

	player := model.Player{
		Name: assignment.Name,
		X:    assignment.Position.X,
		Y:    assignment.Position.Y,
		Anim: anim,
	}

	computerID, ok := model.ComputerIDForWorkstation(assignment.WorkstationID)
	if ok {
		if res := findResource(r.computers, computerID); res != nil {
			res.ConnectedUser[key] = true
			player.Anim = avatar + "_sit_down"
		}
	}

	r.players[key] = &playerSession{session: session, player: player, agentID: assignment.AgentID}
	r.recomputeMetadataLocked()
}

// clearComputerOccupancyLocked drops key from every computer's
// connected-user set, so re-seating an NPC at a new workstation doesn't
// leave it marked occupying its previous one.
func (r *Room) clearComputerOccupancyLocked(key string) {
	for _, res := range r.computers {
		delete(res.ConnectedUser, key)
	}
}

// RemoveNPC drops the NPC assignment for agentID, its seated player
// entry, and its computer occupancy. A connected session for that agent
// is left for the caller to disconnect separately — removing the
// assignment does not by itself close a live connection.
func (r *Room) RemoveNPC(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.npcAssignments, agentID)
	key := npcSessionKey(agentID)
	r.clearComputerOccupancyLocked(key)
	delete(r.players, key)
	r.recomputeMetadataLocked()
}

// NPCStateUpdate is a sparse set of fields to apply to an already-seated
// NPC. A nil/empty field is left unchanged.
type NPCStateUpdate struct {
	Position      *model.Position
	Anim          string
	Posture       string // "sit" or "stand"; picks the avatar's canonical anim
	WorkstationID *string
	VoiceAgentID  *string
}

// UpdateNPCState applies a sparse update to an already-assigned NPC's
// player entity and assignment record, re-resolving its computer
// occupancy when WorkstationID changes. It reports false if agentID has
// no assignment in this room.
func (r *Room) UpdateNPCState(agentID string, update NPCStateUpdate) (model.NpcAssignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	assignment, ok := r.npcAssignments[agentID]
	if !ok {
		return model.NpcAssignment{}, false
	}
	session, ok := r.sessionForAgentLocked(agentID)
	if !ok {
		return model.NpcAssignment{}, false
	}

	avatar := assignment.AvatarID
	if avatar == "" {
		avatar = "adam"
	}
	key := npcSessionKey(agentID)

	if update.Position != nil {
		assignment.Position = *update.Position
		session.player.X = update.Position.X
		session.player.Y = update.Position.Y
	}

	if update.WorkstationID != nil {
		r.clearComputerOccupancyLocked(key)
		assignment.WorkstationID = *update.WorkstationID
		assignment.ComputerID = ""
		if computerID, ok := model.ComputerIDForWorkstation(*update.WorkstationID); ok {
			assignment.ComputerID = computerID
			if res := findResource(r.computers, computerID); res != nil {
				res.ConnectedUser[key] = true
			}
		}
	}

	if update.VoiceAgentID != nil {
		assignment.VoiceAgentID = *update.VoiceAgentID
	}

	switch update.Posture {
	case "sit":
		session.player.Anim = avatar + "_sit_down"
	case "stand":
		session.player.Anim = avatar + "_idle_down"
	}
	if update.Anim != "" {
		session.player.Anim = update.Anim
	}

	r.recomputeMetadataLocked()
	return *assignment, true
}

// HasNPCAssignment reports whether agentID currently has an NPC
// assignment recorded in this room.
func (r *Room) HasNPCAssignment(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.npcAssignments[agentID]
	return ok
}

// NPCAssignments returns a snapshot of every NPC currently assigned to
// this room, keyed by agent id.
func (r *Room) NPCAssignments() map[string]model.NpcAssignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]model.NpcAssignment, len(r.npcAssignments))
	for id, a := range r.npcAssignments {
		out[id] = *a
	}
	return out
}

func (r *Room) sessionForAgentLocked(agentID string) (*playerSession, bool) {
	session, ok := r.players[npcSessionKey(agentID)]
	return session, ok
}

// JoinResult is returned to the caller that drove a successful
// handshake, carrying the snapshot a freshly connected client needs to
// render the room.
type JoinResult struct {
	SessionID string
	Rehydrated bool
	Players   []model.Player
	NPCs      map[string]model.NpcAssignment
}

// Join registers a newly authenticated session (human or NPC) into the
// room, returning the room-level session key the caller must use for
// every subsequent Dispatch/Broadcast/Leave call. A human session is
// keyed by sessionID as presented by the transport layer. An NPC session
// is keyed by npcSessionKey(agentID): if UpsertNPC (or a previous
// session) already seated that key, this call attaches the new
// connection to the existing entry and rehydrates its last known
// name/position instead of starting from a blank slate; otherwise it
// creates a fresh entry, exactly as it would for an NPC with no recorded
// assignment.
func (r *Room) Join(sessionID string, session *transport.Session, decision AuthDecision, nickname string) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionID
	rehydrated := false

	if decision.IsNPC {
		key = npcSessionKey(decision.AgentID)
		if existing, ok := r.players[key]; ok {
			existing.session = session
			rehydrated = true
		} else {
			r.players[key] = &playerSession{session: session, player: model.Player{Name: nickname}, agentID: decision.AgentID}
		}
	} else {
		r.players[key] = &playerSession{session: session, player: model.Player{Name: nickname}, agentID: decision.AgentID}
	}

	r.recomputeMetadataLocked()

	r.logEvent(logging.SeverityInfo, "session joined", map[string]any{
		"sessionId":  key,
		"isNpc":      decision.IsNPC,
		"rehydrated": rehydrated,
	})

	npcs := make(map[string]model.NpcAssignment, len(r.npcAssignments))
	for id, a := range r.npcAssignments {
		npcs[id] = *a
	}
	players := make([]model.Player, 0, len(r.players))
	for _, s := range r.players {
		players = append(players, s.player)
	}

	return JoinResult{SessionID: key, Rehydrated: rehydrated, Players: players, NPCs: npcs}
}

// Leave disconnects sessionID from the room. A human session's player
// entry is removed outright. An NPC session whose assignment still
// exists keeps its seated player entry (the players[npc-K]-exists-iff-
// assigned invariant UpsertNPC maintains), with its transport session
// cleared rather than the entry deleted; one with no remaining
// assignment is removed like a human session would be. It returns true
// if disposing the room afterward is safe to consider (the room has no
// remaining sessions or NPC assignments).
func (r *Room) Leave(sessionID string) (shouldConsiderDispose bool) {
	r.mu.Lock()
	if existing, ok := r.players[sessionID]; ok {
		if _, stillAssigned := r.npcAssignments[existing.agentID]; existing.agentID != "" && stillAssigned {
			existing.session = nil
		} else {
			delete(r.players, sessionID)
		}
	}
	empty := len(r.players) == 0 && len(r.npcAssignments) == 0
	r.recomputeMetadataLocked()
	r.mu.Unlock()

	r.logEvent(logging.SeverityInfo, "session left", map[string]any{"sessionId": sessionID, "time": time.Now()})

	if empty && r.OnDispose != nil {
		r.OnDispose(r)
	}
	return empty
}
