package directory

import (
	"context"
	"testing"

	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/room"
)

func newTestDirectory() *Directory {
	return New("office.xyz", nil, nil)
}

func newTestRoom(roomID, slug string) *room.Room {
	return room.New(room.Config{RoomID: roomID, NamespaceSlug: slug, OfficeID: "office-1", RegistryBacked: true})
}

func newAdHocTestRoom(roomID, slug string) *room.Room {
	return room.New(room.Config{RoomID: roomID, NamespaceSlug: slug, OfficeID: "office-1"})
}

func TestPutAndGetByBothKeys(t *testing.T) {
	d := newTestDirectory()
	r := newTestRoom("room-1", "acme")
	d.Put(r)

	if got, ok := d.GetByRoomID("room-1"); !ok || got != r {
		t.Error("expected GetByRoomID to find the room")
	}
	if got, ok := d.GetByNamespaceSlug("acme"); !ok || got != r {
		t.Error("expected GetByNamespaceSlug to find the room")
	}
}

func TestFindRoomWithAgentSearchesEveryRoom(t *testing.T) {
	d := newTestDirectory()
	r1 := newTestRoom("room-1", "acme")
	r2 := newTestRoom("room-2", "globex")
	r2.UpsertNPC(model.NpcAssignment{AgentID: "agent-1"})
	d.Put(r1)
	d.Put(r2)

	found, ok := d.FindRoomWithAgent("agent-1")
	if !ok || found.RoomID != "room-2" {
		t.Errorf("FindRoomWithAgent = (%v, %v), want room-2", found, ok)
	}

	if _, ok := d.FindRoomWithAgent("no-such-agent"); ok {
		t.Error("expected no match for an unassigned agent")
	}
}

func TestDestroyNamespaceMatchesDomainSuffixedForm(t *testing.T) {
	d := newTestDirectory()
	d.Put(newTestRoom("room-1", "acme"))

	removedRooms, removedAgents := d.DestroyNamespace(context.Background(), "acme.office.xyz")
	if len(removedRooms) != 1 || removedRooms[0] != "room-1" {
		t.Fatalf("removedRooms = %v, want [room-1]", removedRooms)
	}
	if len(removedAgents) != 0 {
		t.Errorf("removedAgents = %v, want none", removedAgents)
	}
	if _, ok := d.GetByRoomID("room-1"); ok {
		t.Error("expected room to be removed")
	}
}

func TestDestroyNamespaceRemovesItsNPCs(t *testing.T) {
	d := newTestDirectory()
	r := newTestRoom("room-1", "acme")
	r.UpsertNPC(model.NpcAssignment{AgentID: "agent-1"})
	d.Put(r)

	removedRooms, removedAgents := d.DestroyNamespace(context.Background(), "acme")
	if len(removedRooms) != 1 || removedRooms[0] != "room-1" {
		t.Fatalf("removedRooms = %v, want [room-1]", removedRooms)
	}
	if len(removedAgents) != 1 || removedAgents[0] != "agent-1" {
		t.Fatalf("removedAgents = %v, want [agent-1]", removedAgents)
	}
}

func TestDestroyNamespaceIsIdempotent(t *testing.T) {
	d := newTestDirectory()
	removedRooms, removedAgents := d.DestroyNamespace(context.Background(), "nobody-here")
	if len(removedRooms) != 0 || len(removedAgents) != 0 {
		t.Errorf("removedRooms, removedAgents = %v, %v, want none", removedRooms, removedAgents)
	}
}

func TestPruneNamespacesNotInRemovesUnlistedRooms(t *testing.T) {
	d := newTestDirectory()
	d.Put(newTestRoom("room-1", "acme"))
	d.Put(newTestRoom("room-2", "globex"))

	pruned := d.PruneNamespacesNotIn(context.Background(), map[string]bool{"acme": true})
	if len(pruned) != 1 || pruned[0] != "globex" {
		t.Errorf("pruned = %v, want [globex]", pruned)
	}
	if _, ok := d.GetByNamespaceSlug("globex"); ok {
		t.Error("expected globex room to be pruned")
	}
	if _, ok := d.GetByNamespaceSlug("acme"); !ok {
		t.Error("expected acme room to survive pruning")
	}
}

func TestPruneNamespacesNotInSkipsNonRegistryBackedRooms(t *testing.T) {
	d := newTestDirectory()
	d.Put(newAdHocTestRoom("room-1", "adhoc"))

	pruned := d.PruneNamespacesNotIn(context.Background(), map[string]bool{})
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want none", pruned)
	}
	if _, ok := d.GetByNamespaceSlug("adhoc"); !ok {
		t.Error("expected the ad-hoc room to survive pruning")
	}
}

func TestListNPCAssignmentsSpansRooms(t *testing.T) {
	d := newTestDirectory()
	r1 := newTestRoom("room-1", "acme")
	r1.UpsertNPC(model.NpcAssignment{AgentID: "agent-1"})
	r2 := newTestRoom("room-2", "globex")
	r2.UpsertNPC(model.NpcAssignment{AgentID: "agent-2"})
	d.Put(r1)
	d.Put(r2)

	assignments := d.ListNPCAssignments()
	if len(assignments) != 2 {
		t.Fatalf("len(assignments) = %d, want 2", len(assignments))
	}
}
