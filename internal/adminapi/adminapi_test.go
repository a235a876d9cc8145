package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"skyoffice-presence/server/internal/directory"
	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/room"
)

func newTestServer() (*Server, *room.Room) {
	dir := directory.New("office.xyz", nil, nil)
	r := room.New(room.Config{RoomID: "room-1", NamespaceSlug: "acme", OfficeID: "office-1"})
	dir.Put(r)
	return &Server{Directory: dir}, r
}

func TestHandleHealthzReportsRoomCount(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["rooms"] != float64(1) {
		t.Errorf("rooms = %v, want 1", body["rooms"])
	}
}

func TestHandleListRoomsReturnsSummaries(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	var rooms []roomSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rooms) != 1 || rooms[0].NamespaceSlug != "acme" {
		t.Errorf("rooms = %+v, want one room with slug acme", rooms)
	}
}

func TestHandleGetRoomByNamespaceNotFound(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms/by-namespace/nope", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDeployCharacterAssignsIntoOfficeRoom(t *testing.T) {
	s, _ := newTestServer()
	body, _ := json.Marshal(deployCharacterRequest{OfficeID: "office-1", AgentID: "agent-1", Name: "Assistant"})
	req := httptest.NewRequest(http.MethodPost, "/api/deploy-character", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/npcs", nil)
	listRec := httptest.NewRecorder()
	s.Mux().ServeHTTP(listRec, listReq)
	var assignments map[string]map[string]any
	if err := json.Unmarshal(listRec.Body.Bytes(), &assignments); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := assignments["agent-1"]; !ok {
		t.Errorf("assignments = %+v, want agent-1 present", assignments)
	}
}

func TestHandleDeleteRoomDestroysNamespace(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/api/rooms/acme", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := s.Directory.GetByNamespaceSlug("acme"); ok {
		t.Error("expected room to be destroyed")
	}
}

func TestHandleDeleteNPCRemovesAssignment(t *testing.T) {
	s, r := newTestServer()
	req0 := httptest.NewRequest(http.MethodPost, "/api/deploy-character", bytes.NewReader(mustJSON(deployCharacterRequest{OfficeID: "office-1", AgentID: "agent-1"})))
	s.Mux().ServeHTTP(httptest.NewRecorder(), req0)

	req := httptest.NewRequest(http.MethodDelete, "/api/npcs/agent-1", nil)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := r.NPCAssignments()["agent-1"]; ok {
		t.Error("expected assignment to be removed")
	}
}

func TestHandlePersistNPCRejectsEmptyBody(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/npcs/agent-1/persist", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandlePersistNPCRoundsCoordinates(t *testing.T) {
	s, _ := newTestServer()
	deployReq := httptest.NewRequest(http.MethodPost, "/api/deploy-character", bytes.NewReader(mustJSON(deployCharacterRequest{OfficeID: "office-1", AgentID: "agent-1"})))
	s.Mux().ServeHTTP(httptest.NewRecorder(), deployReq)

	body := mustJSON(persistNPCRequest{Position: &model.Position{X: 12.6, Y: 3.2}})
	req := httptest.NewRequest(http.MethodPost, "/api/npcs/agent-1/persist", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, req)
	// No Store is wired in newTestServer, so the handler reports 503 after
	// already applying the in-room update; the rounding still took effect.
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503, body=%s", rec.Code, rec.Body.String())
	}

	target, _ := s.Directory.FindRoomWithAgent("agent-1")
	assignment := target.NPCAssignments()["agent-1"]
	if assignment.Position.X != 13 || assignment.Position.Y != 3 {
		t.Errorf("position = %+v, want {13 3}", assignment.Position)
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
