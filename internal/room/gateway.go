package room

import (
	"encoding/json"

	"skyoffice-presence/server/internal/logging"
)

// sessionTarget pairs a connected session with the room-level key
// (players map key, not transport.Session.ID — an NPC's room key is
// "npc-"+agentID while its transport session carries its own connection
// uuid) that Broadcast matches origin/target against.
type sessionTarget struct {
	key     string
	session *playerSession
}

// Broadcast fans out events to whichever connected sessions each one
// targets, skipping sessions whose transport.Session is nil (a test
// double, or an NPC session with no live connection right now) and
// logging, not failing, individual write errors so one stalled client
// cannot stop delivery to the rest of the room.
func (r *Room) Broadcast(events []OutboundEvent, originSessionID string) {
	if len(events) == 0 {
		return
	}
	r.mu.Lock()
	targets := make([]sessionTarget, 0, len(r.players))
	for key, s := range r.players {
		if s.session != nil {
			targets = append(targets, sessionTarget{key: key, session: s})
		}
	}
	r.mu.Unlock()

	for _, event := range events {
		for _, t := range targets {
			r.deliver(t, event, originSessionID)
		}
	}
}

func (r *Room) deliver(t sessionTarget, event OutboundEvent, originSessionID string) {
	isOrigin := t.key == originSessionID
	switch {
	case event.Broadcast:
		if event.ExceptOrigin && isOrigin {
			return
		}
	case event.TargetSession != "":
		if t.key != event.TargetSession {
			return
		}
	default:
		return
	}
	if err := t.session.session.WriteJSON(event.Payload); err != nil {
		r.logEvent(logging.SeverityWarn, "failed to deliver outbound event", map[string]any{
			"sessionId": t.key, "error": err.Error(),
		})
	}
}

// Envelope decodes a raw inbound client frame far enough to dispatch it.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"-"`
}

// DispatchRaw decodes the "type" discriminator out of raw and routes the
// full frame to Dispatch, returning nil for a malformed frame rather than
// erroring — mirrors Dispatch's no-op-on-unknown-type tolerance.
func (r *Room) DispatchRaw(sessionID string, raw []byte) []OutboundEvent {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	return r.Dispatch(sessionID, env.Type, raw)
}
