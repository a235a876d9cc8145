// Package transport is the thin WebSocket layer rooms are served over,
// grounded on the retrieved corpus's hub/subscriber pattern: a
// gorilla/websocket connection guarded by its own mutex (websocket
// connections do not allow concurrent writers), a bounded write
// deadline, and a JSON message envelope carrying a "type" discriminator.
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Upgrader upgrades an incoming HTTP request to a WebSocket connection.
// Origin checking is left permissive: this server sits behind the
// Registry's own edge, which is responsible for origin policy.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session wraps a single upgraded WebSocket connection, serializing
// writes from whatever goroutines want to push messages to this client.
type Session struct {
	ID   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewSession wraps conn for the given session id.
func NewSession(id string, conn *websocket.Conn) *Session {
	return &Session{ID: id, conn: conn}
}

// WriteJSON marshals v and sends it as a single text frame.
func (s *Session) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadMessage blocks for the next inbound frame. It is only ever called
// from the single per-connection read loop, so it takes no lock.
func (s *Session) ReadMessage() ([]byte, error) {
	_, payload, err := s.conn.ReadMessage()
	return payload, err
}

// Close sends a close frame (best effort) and closes the connection.
func (s *Session) Close(closeCode int, reason string) error {
	s.mu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, reason))
	s.mu.Unlock()
	return s.conn.Close()
}

// Envelope is the minimal shape every inbound client message shares: a
// "type" discriminator that handlers switch on before decoding the rest
// of the payload into a type-specific struct.
type Envelope struct {
	Type string `json:"type"`
}
