package wsgateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/websocket"

	"skyoffice-presence/server/internal/directory"
	"skyoffice-presence/server/internal/room"
)

func newTestGateway() (*Gateway, *room.Room) {
	dir := directory.New("office.xyz", nil, nil)
	r := room.New(room.Config{RoomID: "room-1", NamespaceSlug: "acme", OfficeID: "office-1"})
	dir.Put(r)
	return &Gateway{Directory: dir}, r
}

func dialURL(t *testing.T, baseURL string, query url.Values) string {
	t.Helper()
	parsed, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func TestHandleConnectRejectsUnknownNamespace(t *testing.T) {
	gw, _ := newTestGateway()
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleConnect))
	t.Cleanup(srv.Close)

	q := url.Values{"namespace": {"nope"}}
	_, resp, err := websocket.DefaultDialer.Dial(dialURL(t, srv.URL, q), nil)
	if err == nil {
		t.Fatal("expected dial to fail for an unknown namespace")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %v, want 404", resp)
	}
}

func TestHandleConnectRejectsBadPassword(t *testing.T) {
	gw, r := newTestGateway()
	if err := r.SetPassword("secret"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleConnect))
	t.Cleanup(srv.Close)

	q := url.Values{"namespace": {"acme"}, "password": {"wrong"}}
	_, resp, err := websocket.DefaultDialer.Dial(dialURL(t, srv.URL, q), nil)
	if err == nil {
		t.Fatal("expected dial to fail for an incorrect password")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %v, want 403", resp)
	}
}

func TestHandleConnectJoinsAndDispatches(t *testing.T) {
	gw, r := newTestGateway()
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleConnect))
	t.Cleanup(srv.Close)

	q := url.Values{"namespace": {"acme"}, "name": {"Alice"}}
	conn, resp, err := websocket.DefaultDialer.Dial(dialURL(t, srv.URL, q), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	_, snapshot, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(snapshot, &frame); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if frame["type"] != "ROOM_SNAPSHOT" {
		t.Fatalf("type = %v, want ROOM_SNAPSHOT", frame["type"])
	}
	if r.PlayerCount() != 1 {
		t.Fatalf("PlayerCount = %d, want 1 after join", r.PlayerCount())
	}

	msg, _ := json.Marshal(map[string]any{"type": "UPDATE_PLAYER", "x": 3, "y": 4, "anim": "walk"})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}
