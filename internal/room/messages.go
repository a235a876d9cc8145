package room

import (
	"encoding/json"
	"time"

	"skyoffice-presence/server/internal/model"
)

// Inbound message types a connected client may send.
const (
	MsgConnectToComputer      = "CONNECT_TO_COMPUTER"
	MsgDisconnectFromComputer = "DISCONNECT_FROM_COMPUTER"
	MsgStopScreenShare        = "STOP_SCREEN_SHARE"
	MsgConnectToWhiteboard    = "CONNECT_TO_WHITEBOARD"
	MsgDisconnectWhiteboard   = "DISCONNECT_FROM_WHITEBOARD"
	MsgUpdatePlayer           = "UPDATE_PLAYER"
	MsgUpdatePlayerName       = "UPDATE_PLAYER_NAME"
	MsgReadyToConnect         = "READY_TO_CONNECT"
	MsgVideoConnected         = "VIDEO_CONNECTED"
	MsgDisconnectStream       = "DISCONNECT_STREAM"
	MsgAddChatMessage         = "ADD_CHAT_MESSAGE"
)

// Handler is one inbound-message handler. It receives the decoded
// envelope body and the originating session id, and returns whatever
// outbound events should be broadcast as a result.
type Handler func(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent

// OutboundEvent is a message the room wants pushed back out, either to
// the originating session, to every session ("broadcast"), or to
// everyone else ("broadcast except origin").
type OutboundEvent struct {
	Broadcast      bool
	ExceptOrigin   bool
	TargetSession  string
	Payload        any
}

// Handlers is the dispatch table message type -> handler, mirroring the
// hub's switch-on-type dispatch loop but keyed so the room's transport
// adapter can look handlers up without a growing switch statement.
var Handlers = map[string]Handler{
	MsgConnectToComputer:      handleConnectToComputer,
	MsgDisconnectFromComputer: handleDisconnectFromComputer,
	MsgStopScreenShare:        handleStopScreenShare,
	MsgConnectToWhiteboard:    handleConnectToWhiteboard,
	MsgDisconnectWhiteboard:   handleDisconnectFromWhiteboard,
	MsgUpdatePlayer:           handleUpdatePlayer,
	MsgUpdatePlayerName:       handleUpdatePlayerName,
	MsgReadyToConnect:         handleReadyToConnect,
	MsgVideoConnected:         handleVideoConnected,
	MsgDisconnectStream:       handleDisconnectStream,
	MsgAddChatMessage:         handleAddChatMessage,
}

type resourcePayload struct {
	ID string `json:"id"`
}

func findResource(resources []*model.Resource, id string) *model.Resource {
	for _, res := range resources {
		if res.ID == id {
			return res
		}
	}
	return nil
}

func handleConnectToComputer(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload resourcePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := findResource(r.computers, payload.ID)
	if res == nil {
		return nil
	}
	res.ConnectedUser[sessionID] = true
	return []OutboundEvent{{Broadcast: true, Payload: computerUpdateEvent(payload.ID, res)}}
}

func handleDisconnectFromComputer(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload resourcePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := findResource(r.computers, payload.ID)
	if res == nil {
		return nil
	}
	delete(res.ConnectedUser, sessionID)
	return []OutboundEvent{{Broadcast: true, Payload: computerUpdateEvent(payload.ID, res)}}
}

func handleStopScreenShare(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload resourcePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return []OutboundEvent{{Broadcast: true, ExceptOrigin: true, Payload: map[string]any{
		"type": "STOP_SCREEN_SHARE", "computerId": payload.ID, "sessionId": sessionID,
	}}}
}

func handleConnectToWhiteboard(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload resourcePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := findResource(r.whiteboards, payload.ID)
	if res == nil {
		return nil
	}
	res.ConnectedUser[sessionID] = true
	return []OutboundEvent{{Broadcast: true, Payload: whiteboardUpdateEvent(payload.ID, res)}}
}

func handleDisconnectFromWhiteboard(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload resourcePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := findResource(r.whiteboards, payload.ID)
	if res == nil {
		return nil
	}
	delete(res.ConnectedUser, sessionID)
	return []OutboundEvent{{Broadcast: true, Payload: whiteboardUpdateEvent(payload.ID, res)}}
}

type updatePlayerPayload struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Anim string  `json:"anim"`
}

func handleUpdatePlayer(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload updatePlayerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.players[sessionID]
	if !ok {
		return nil
	}
	session.player.X, session.player.Y, session.player.Anim = payload.X, payload.Y, payload.Anim
	return []OutboundEvent{{Broadcast: true, ExceptOrigin: true, Payload: map[string]any{
		"type": MsgUpdatePlayer, "sessionId": sessionID, "x": payload.X, "y": payload.Y, "anim": payload.Anim,
	}}}
}

type updatePlayerNamePayload struct {
	Name string `json:"name"`
}

func handleUpdatePlayerName(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload updatePlayerNamePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.players[sessionID]
	if !ok {
		return nil
	}
	session.player.Name = payload.Name
	return []OutboundEvent{{Broadcast: true, Payload: map[string]any{
		"type": MsgUpdatePlayerName, "sessionId": sessionID, "name": payload.Name,
	}}}
}

func handleReadyToConnect(r *Room, sessionID string, _ json.RawMessage) []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.players[sessionID]
	if !ok {
		return nil
	}
	session.player.ReadyToConnect = true
	return []OutboundEvent{{Broadcast: true, Payload: map[string]any{
		"type": MsgReadyToConnect, "sessionId": sessionID,
	}}}
}

func handleVideoConnected(r *Room, sessionID string, _ json.RawMessage) []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.players[sessionID]
	if !ok {
		return nil
	}
	session.player.VideoConnected = true
	return []OutboundEvent{{Broadcast: true, Payload: map[string]any{
		"type": MsgVideoConnected, "sessionId": sessionID,
	}}}
}

func handleDisconnectStream(r *Room, sessionID string, _ json.RawMessage) []OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.players[sessionID]
	if !ok {
		return nil
	}
	session.player.VideoConnected = false
	delete(r.streamingPeerOf, sessionID)
	return []OutboundEvent{{Broadcast: true, Payload: map[string]any{
		"type": MsgDisconnectStream, "sessionId": sessionID,
	}}}
}

type addChatMessagePayload struct {
	Content string `json:"content"`
}

func handleAddChatMessage(r *Room, sessionID string, raw json.RawMessage) []OutboundEvent {
	var payload addChatMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	msg := model.ChatMessage{
		SessionID: sessionID,
		Content:   payload.Content,
		CreatedAt: time.Now().UTC(),
	}
	return []OutboundEvent{{Broadcast: true, Payload: map[string]any{
		"type": MsgAddChatMessage, "message": msg,
	}}}
}

func computerUpdateEvent(id string, res *model.Resource) map[string]any {
	return map[string]any{"type": "COMPUTER_UPDATED", "computerId": id, "connectedUsers": connectedUserIDs(res)}
}

func whiteboardUpdateEvent(id string, res *model.Resource) map[string]any {
	return map[string]any{"type": "WHITEBOARD_UPDATED", "whiteboardId": id, "connectedUsers": connectedUserIDs(res)}
}

func connectedUserIDs(res *model.Resource) []string {
	ids := make([]string, 0, len(res.ConnectedUser))
	for id := range res.ConnectedUser {
		ids = append(ids, id)
	}
	return ids
}

// Dispatch looks up and invokes the handler for msgType, returning
// nil (no-op) for an unrecognized type rather than erroring — a client
// on a newer protocol version sending an unknown message type must not
// be able to crash the room.
func (r *Room) Dispatch(sessionID, msgType string, raw json.RawMessage) []OutboundEvent {
	handler, ok := Handlers[msgType]
	if !ok {
		return nil
	}
	return handler(r, sessionID, raw)
}
