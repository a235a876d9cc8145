// Package wsgateway is the minimal stand-in for the realtime room
// framework the rest of the system assumes: it upgrades an incoming
// HTTP request to a WebSocket, runs the onAuth handshake against the
// target room, and pumps frames between the connection and the room's
// message dispatch table until the client disconnects. A production
// deployment would replace this with a managed room framework's
// matchmaker and transport; this exists so Room, Directory, and the
// Secret Resolver have a real caller driving them end to end.
package wsgateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"skyoffice-presence/server/internal/directory"
	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/room"
	"skyoffice-presence/server/internal/secretresolver"
	"skyoffice-presence/server/internal/transport"
)

// Gateway wires the room directory and secret resolver to an HTTP
// upgrade endpoint.
type Gateway struct {
	Directory *directory.Directory
	Resolver  *secretresolver.Resolver
	Log       logging.Publisher
}

// HandleConnect upgrades r into a WebSocket, authenticates it against
// the room named by the "namespace" query parameter (or, if "roomId" is
// also given, against that specific room instance — used by a stale
// client reconnecting to a room it cached before a namespace move), and
// — on success — joins it and runs its read loop until the connection
// closes.
//
// Query parameters mirror the join options a room framework would pass
// through from its matchmaker: namespace, roomId, password, name (human
// join), and token/agentId/officeId (NPC join).
func (g *Gateway) HandleConnect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slug := q.Get("namespace")
	roomID := q.Get("roomId")

	var target *room.Room
	var ok bool
	if roomID != "" {
		target, ok = g.Directory.GetByRoomID(roomID)
	} else {
		target, ok = g.Directory.GetByNamespaceSlug(slug)
	}
	if !ok {
		http.Error(w, "no room for namespace", http.StatusNotFound)
		return
	}

	movedToSlug, redirectRoomID := movedRoom(g.Directory, slug, target)

	req := room.AuthRequest{
		NamespaceSlug: slug,
		Password:      q.Get("password"),
		Token:         q.Get("token"),
		AgentID:       q.Get("agentId"),
		OfficeID:      q.Get("officeId"),
	}
	decision := target.Authenticate(r.Context(), req, g.Resolver, movedToSlug)
	if !decision.OK {
		switch decision.Failure {
		case room.AuthFailureNamespaceMoved:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGone)
			_ = json.NewEncoder(w).Encode(map[string]string{"roomId": redirectRoomID})
		case room.AuthFailureNoAssignment:
			http.Error(w, decision.Reason, http.StatusNotFound)
		default:
			http.Error(w, decision.Reason, http.StatusForbidden)
		}
		return
	}

	conn, err := transport.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	transportID := uuid.NewString()
	session := transport.NewSession(transportID, conn)
	result := target.Join(transportID, session, decision, q.Get("name"))
	sessionID := result.SessionID

	if err := session.WriteJSON(map[string]any{
		"type":      "ROOM_SNAPSHOT",
		"sessionId": sessionID,
		"players":   result.Players,
		"npcs":      result.NPCs,
	}); err != nil {
		session.Close(1011, "snapshot delivery failed")
		target.Leave(sessionID)
		return
	}

	g.pump(target, sessionID, session)
}

// movedRoom reports whether a request's requested namespace slug
// resolves to a different live room than the one the connection
// actually landed on (target) — the case a stale client hits when it
// holds a direct reference to a room whose namespace has since moved
// elsewhere. It returns the slug and room id the client should be
// redirected to, or ("", "") if no move applies.
func movedRoom(dir *directory.Directory, requestedSlug string, target *room.Room) (slug, roomID string) {
	if requestedSlug == "" || requestedSlug == target.NamespaceSlug {
		return "", ""
	}
	other, ok := dir.GetByNamespaceSlug(requestedSlug)
	if !ok || other.RoomID == target.RoomID {
		return "", ""
	}
	return other.NamespaceSlug, other.RoomID
}

// pump runs the per-connection read loop: every inbound frame is
// dispatched against the room, and whatever outbound events that
// produces are broadcast before the loop reads the next frame. It
// returns once the connection errors or closes, after removing the
// session from the room.
func (g *Gateway) pump(target *room.Room, sessionID string, session *transport.Session) {
	defer func() {
		session.Close(1000, "")
		target.Leave(sessionID)
	}()

	for {
		raw, err := session.ReadMessage()
		if err != nil {
			return
		}
		events := target.DispatchRaw(sessionID, raw)
		target.Broadcast(events, sessionID)
	}
}
