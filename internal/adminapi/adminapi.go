// Package adminapi is the HTTP control surface the Registry and other
// internal services use to manage rooms and NPCs. It is
// built directly on net/http's ServeMux, matching the corpus's
// handler-per-route style rather than reaching for an external router.
package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"skyoffice-presence/server/internal/directory"
	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/pathfind"
	"skyoffice-presence/server/internal/reconciler"
	"skyoffice-presence/server/internal/registryclient"
	"skyoffice-presence/server/internal/room"
	"skyoffice-presence/server/internal/store"
)

// Server wires the admin HTTP surface to its collaborators.
type Server struct {
	Directory     *directory.Directory
	Reconciler    *reconciler.Reconciler
	Registry      *registryclient.Client
	Store         *store.Store
	Grid          *pathfind.Grid
	Log           logging.Publisher
	ChatBridgeURL string
	HTTPClient    *http.Client

	// Connect, when set, handles the room join upgrade at GET /connect.
	// It is a plain http.HandlerFunc rather than a wsgateway.Gateway
	// field to avoid this package importing the room-transport stack it
	// has no other reason to depend on.
	Connect http.HandlerFunc
}

// Mux builds the ServeMux with every admin route registered.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/deploy-character", s.handleDeployCharacter)
	mux.HandleFunc("GET /api/npcs", s.handleListNPCs)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/by-namespace/{slug}", s.handleGetRoomByNamespace)
	mux.HandleFunc("DELETE /api/rooms/{slug}", s.handleDeleteRoom)
	mux.HandleFunc("GET /api/offices/{officeId}/agents", s.handleListOfficeAgents)
	mux.HandleFunc("DELETE /api/npcs/{agentId}", s.handleDeleteNPC)
	mux.HandleFunc("POST /api/pathfind", s.handlePathfind)
	mux.HandleFunc("POST /api/npcs/{agentId}/persist", s.handlePersistNPC)
	if s.Connect != nil {
		mux.HandleFunc("GET /connect", s.Connect)
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
		"rooms":  len(s.Directory.ListRooms()),
	})
}

type deployCharacterRequest struct {
	OfficeID      string          `json:"officeId"`
	AgentID       string          `json:"agentId"`
	Name          string          `json:"name"`
	AvatarID      string          `json:"avatarId"`
	WorkstationID string          `json:"workstationId"`
	NamespaceSlug string          `json:"namespaceSlug"`
	RoomID        string          `json:"roomId"`
	Position      *model.Position `json:"position"`
	Metadata      model.Metadata  `json:"metadata"`
}

// resolveDeployTarget finds the room a deploy-character call should seat
// its NPC into, trying in order: an explicit namespaceSlug, the office's
// matchmaker listing (this deployment has no matchmaker, so that step is
// skipped — see DESIGN.md), an explicit roomId, and finally whatever room
// currently has at least one connected player.
func resolveDeployTarget(dir *directory.Directory, req deployCharacterRequest) (*room.Room, bool) {
	if req.NamespaceSlug != "" {
		if target, ok := dir.GetByNamespaceSlug(req.NamespaceSlug); ok {
			return target, true
		}
	}
	if req.RoomID != "" {
		if target, ok := dir.GetByRoomID(req.RoomID); ok {
			return target, true
		}
	}
	if req.OfficeID != "" {
		if target, ok := findRoomByOfficeID(dir, req.OfficeID); ok {
			return target, true
		}
	}
	return dir.GetAnyActiveRoom()
}

// sanitizePosition fills in the default spawn point {x:705, y:500} used
// across the corpus's character-select screen whenever a caller omits a
// coordinate.
func sanitizePosition(p *model.Position) model.Position {
	if p == nil {
		return model.Position{X: 705, Y: 500}
	}
	out := *p
	if out.X == 0 {
		out.X = 705
	}
	if out.Y == 0 {
		out.Y = 500
	}
	return out
}

// handleDeployCharacter immediately assigns an NPC into whichever room
// matches the request, ahead of the next reconciler tick — used when a
// caller wants an agent visible without waiting up to
// REGISTRY_SYNC_INTERVAL_MS for the next periodic sync.
func (s *Server) handleDeployCharacter(w http.ResponseWriter, r *http.Request) {
	var req deployCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agentId is required")
		return
	}

	target, ok := resolveDeployTarget(s.Directory, req)
	if !ok {
		writeError(w, http.StatusNotFound, "no room found to deploy into")
		return
	}

	officeID := req.OfficeID
	if officeID == "" {
		officeID = target.OfficeID
	}

	assignment := model.NpcAssignment{
		AgentID:       req.AgentID,
		OfficeID:      officeID,
		Name:          req.Name,
		AvatarID:      req.AvatarID,
		WorkstationID: req.WorkstationID,
		Position:      sanitizePosition(req.Position),
		NamespaceSlug: target.NamespaceSlug,
		RoomID:        target.RoomID,
		AssignedAt:    model.NowISO(time.Now()),
		AgentMetadata: req.Metadata.Clone(),
	}
	target.UpsertNPC(assignment)

	if s.Store != nil {
		_ = s.Store.UpsertNPC(r.Context(), store.NPC{
			AgentID: assignment.AgentID, OfficeID: assignment.OfficeID, RoomID: assignment.RoomID,
			NamespaceSlug: assignment.NamespaceSlug, Name: assignment.Name, AvatarID: assignment.AvatarID,
			WorkstationID: assignment.WorkstationID, PositionX: assignment.Position.X, PositionY: assignment.Position.Y,
			AssignedAt: model.ParseAssignedAt(assignment.AssignedAt), Metadata: assignment.AgentMetadata,
		})
	}

	writeJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleListNPCs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Directory.ListNPCAssignments())
}

type roomSummary struct {
	RoomID        string         `json:"roomId"`
	NamespaceSlug string         `json:"namespaceSlug"`
	OfficeID      string         `json:"officeId"`
	PlayerCount   int            `json:"playerCount"`
	Metadata      map[string]any `json:"metadata"`
}

func summarize(r *room.Room) roomSummary {
	return roomSummary{
		RoomID:        r.RoomID,
		NamespaceSlug: r.NamespaceSlug,
		OfficeID:      r.OfficeID,
		PlayerCount:   r.PlayerCount(),
		Metadata:      r.Metadata(),
	}
}

// handleListRooms is not part of the distilled operation set; it fills
// the gap for callers that need to enumerate every room this process
// hosts rather than looking one up by namespace.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.Directory.ListRooms()
	out := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, summarize(room))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRoomByNamespace(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	room, ok := s.Directory.GetByNamespaceSlug(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "no room for namespace")
		return
	}
	writeJSON(w, http.StatusOK, summarize(room))
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	removedRooms, removedAgents := s.Directory.DestroyNamespace(r.Context(), slug)
	if s.ChatBridgeURL != "" {
		go s.invalidateChatBridgeCache(slug, removedAgents)
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"removedRooms":  removedRooms,
		"removedAgents": removedAgents,
	})
}

// invalidateChatBridgeCache fires a best-effort cache-invalidation call
// to the chat bridge after a room is torn down. It runs detached from
// the request and its result is never surfaced to the DELETE caller —
// a slow or unreachable chat bridge must never hold up room teardown.
func (s *Server) invalidateChatBridgeCache(slug string, agentIDs []string) {
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(map[string]any{"agentIds": agentIDs, "namespaceSlug": slug})
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ChatBridgeURL+"/api/aladdin/cache/invalidate", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		s.Log.Publish(logging.Event{Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
			Message: "chat bridge cache invalidation failed", Namespace: slug, Extra: map[string]any{"error": err.Error()}})
		return
	}
	resp.Body.Close()
}

func (s *Server) handleListOfficeAgents(w http.ResponseWriter, r *http.Request) {
	officeID := r.PathValue("officeId")
	agents := s.Registry.ListAgents(r.Context(), officeID)
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleDeleteNPC(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agentId")
	if target, ok := s.Directory.FindRoomWithAgent(agentID); ok {
		target.RemoveNPC(agentID)
	}
	if s.Store != nil {
		_ = s.Store.DeleteNPC(r.Context(), agentID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"agentId": agentID, "status": "removed"})
}

type pathfindRequest struct {
	StartX  float64 `json:"startX"`
	StartY  float64 `json:"startY"`
	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
}

type pathfindResponse struct {
	Waypoints []pathfind.Point `json:"waypoints"`
}

func (s *Server) handlePathfind(w http.ResponseWriter, r *http.Request) {
	if s.Grid == nil {
		writeError(w, http.StatusServiceUnavailable, "no walkable map loaded")
		return
	}
	var req pathfindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	path := s.Grid.FindPath(
		pathfind.Point{X: req.StartX, Y: req.StartY},
		pathfind.Point{X: req.TargetX, Y: req.TargetY},
	)
	writeJSON(w, http.StatusOK, pathfindResponse{Waypoints: path})
}

type persistNPCRequest struct {
	NamespaceSlug string          `json:"namespaceSlug"`
	Position      *model.Position `json:"position"`
	Anim          string          `json:"anim"`
	Posture       string          `json:"posture"`
	WorkstationID *string         `json:"workstationId"`
	VoiceAgentID  *string         `json:"voiceAgentId"`
}

func (req persistNPCRequest) empty() bool {
	return req.Position == nil && req.Anim == "" && req.Posture == "" && req.WorkstationID == nil && req.VoiceAgentID == nil
}

// resolvePersistTarget finds the room to apply a persist-NPC update
// against: an explicit namespaceSlug, the room that already owns
// agentID's assignment, or whatever room currently has a connected
// player.
func resolvePersistTarget(dir *directory.Directory, namespaceSlug, agentID string) (*room.Room, bool) {
	if namespaceSlug != "" {
		if target, ok := dir.GetByNamespaceSlug(namespaceSlug); ok {
			return target, true
		}
	}
	if target, ok := dir.FindRoomWithAgent(agentID); ok {
		return target, true
	}
	return dir.GetAnyActiveRoom()
}

func (s *Server) handlePersistNPC(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agentId")

	var req persistNPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.empty() {
		writeError(w, http.StatusBadRequest, "at least one field must be provided")
		return
	}
	if req.Position != nil {
		req.Position.X = math.Round(req.Position.X)
		req.Position.Y = math.Round(req.Position.Y)
	}

	target, ok := resolvePersistTarget(s.Directory, req.NamespaceSlug, agentID)
	if !ok {
		writeError(w, http.StatusNotFound, "no room found to persist into")
		return
	}

	assignment, ok := target.UpdateNPCState(agentID, room.NPCStateUpdate{
		Position:      req.Position,
		Anim:          req.Anim,
		Posture:       req.Posture,
		WorkstationID: req.WorkstationID,
		VoiceAgentID:  req.VoiceAgentID,
	})
	if !ok {
		writeError(w, http.StatusNotFound, "agent assignment not found")
		return
	}

	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "no persistence store configured")
		return
	}
	err := s.Store.UpsertNPC(r.Context(), store.NPC{
		AgentID: assignment.AgentID, RegistryAgentID: assignment.RegistryAgentID, OfficeID: assignment.OfficeID,
		RoomID: assignment.RoomID, NamespaceSlug: assignment.NamespaceSlug, Name: assignment.Name,
		AvatarID: assignment.AvatarID, WorkstationID: assignment.WorkstationID, PositionX: assignment.Position.X,
		PositionY: assignment.Position.Y, Role: assignment.Role, ComputerID: assignment.ComputerID,
		VoiceAgentID: assignment.VoiceAgentID, AssignedAt: model.ParseAssignedAt(assignment.AssignedAt), Metadata: assignment.AgentMetadata,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"agentId": agentID, "status": "persisted"})
}

func findRoomByOfficeID(dir *directory.Directory, officeID string) (*room.Room, bool) {
	for _, r := range dir.ListRooms() {
		if r.OfficeID == officeID {
			return r, true
		}
	}
	return nil, false
}
