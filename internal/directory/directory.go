// Package directory is the process-wide index of live rooms: lookups by
// room id and by namespace slug, NPC-assignment queries that span every
// room, and namespace lifecycle management (creation, pruning,
// destruction) driven by the reconciler.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/room"
	"skyoffice-presence/server/internal/store"
)

// Directory indexes every room this process currently hosts.
type Directory struct {
	mu              sync.RWMutex
	byRoomID        map[string]*room.Room
	byNamespaceSlug map[string]*room.Room

	officeBaseDomain string
	store            *store.Store
	log              logging.Publisher
}

// New constructs an empty Directory. officeBaseDomain is used to expand
// a namespace slug into its domain-suffixed candidate forms when
// destroying a namespace. st may be nil, in which case destroying or
// pruning a namespace only affects in-memory state and nothing
// persisted is deleted.
func New(officeBaseDomain string, st *store.Store, log logging.Publisher) *Directory {
	if log == nil {
		log = logging.NopPublisher{}
	}
	return &Directory{
		byRoomID:         make(map[string]*room.Room),
		byNamespaceSlug:  make(map[string]*room.Room),
		officeBaseDomain: officeBaseDomain,
		store:            st,
		log:              log,
	}
}

// Put registers r under both of its keys, replacing any previous room
// that held either key.
func (d *Directory) Put(r *room.Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byRoomID[r.RoomID] = r
	d.byNamespaceSlug[r.NamespaceSlug] = r
}

// GetByRoomID looks up a room by its id.
func (d *Directory) GetByRoomID(roomID string) (*room.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byRoomID[roomID]
	return r, ok
}

// GetByNamespaceSlug looks up a room by its namespace slug.
func (d *Directory) GetByNamespaceSlug(slug string) (*room.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byNamespaceSlug[slug]
	return r, ok
}

// GetAnyActiveRoom returns an arbitrary room with at least one
// connected session, used by admin endpoints that just need "a" live
// room rather than a specific one.
func (d *Directory) GetAnyActiveRoom() (*room.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.byRoomID {
		if r.PlayerCount() > 0 {
			return r, true
		}
	}
	return nil, false
}

// FindRoomWithAgent returns the room holding an NPC assignment for
// agentID, if any.
func (d *Directory) FindRoomWithAgent(agentID string) (*room.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.byRoomID {
		if _, ok := r.NPCAssignments()[agentID]; ok {
			return r, true
		}
	}
	return nil, false
}

// ListNPCAssignments returns every NPC assignment across every room,
// keyed by agent id.
func (d *Directory) ListNPCAssignments() map[string]model.NpcAssignment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]model.NpcAssignment)
	for _, r := range d.byRoomID {
		for agentID, assignment := range r.NPCAssignments() {
			out[agentID] = assignment
		}
	}
	return out
}

// ListRooms returns a snapshot of every room currently registered.
func (d *Directory) ListRooms() []*room.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*room.Room, 0, len(d.byRoomID))
	for _, r := range d.byRoomID {
		out = append(out, r)
	}
	return out
}

// PruneNamespacesNotIn removes every registry-backed room whose
// namespace slug is not in keep, the set the reconciler just confirmed
// still exist in the Registry. A room with RegistryBacked false — one
// created outside the reconciler's ensureRoom, e.g. for an ad-hoc human
// session — is never a pruning candidate, regardless of keep. Each
// pruned room is destroyed the same way an explicit DELETE
// /api/rooms/{slug} would.
func (d *Directory) PruneNamespacesNotIn(ctx context.Context, keep map[string]bool) []string {
	d.mu.RLock()
	var toPrune []string
	for slug, r := range d.byNamespaceSlug {
		if r.RegistryBacked && !keep[slug] {
			toPrune = append(toPrune, slug)
		}
	}
	d.mu.RUnlock()

	for _, slug := range toPrune {
		d.DestroyNamespace(ctx, slug)
	}
	return toPrune
}

// namespaceCandidates expands slug into every key form a room for it
// might have been registered under: the bare slug, its namespace head
// (before the first dot), and the slug suffixed with the office base
// domain. Destruction checks every candidate so a slug passed in any of
// its equivalent forms still finds the room.
func (d *Directory) namespaceCandidates(slug string) []string {
	candidates := []string{slug}
	if head, _, ok := strings.Cut(slug, "."); ok {
		candidates = append(candidates, head)
	}
	if d.officeBaseDomain != "" && !strings.Contains(slug, ".") {
		candidates = append(candidates, slug+"."+d.officeBaseDomain)
	}
	return candidates
}

// DestroyNamespace removes and disposes the room for slug, trying every
// equivalent candidate form, deleting its persisted room row and every
// persisted NPC row that belonged to it. It is idempotent: destroying a
// namespace with no matching room is a no-op, not an error, and returns
// no removed ids.
func (d *Directory) DestroyNamespace(ctx context.Context, slug string) (removedRooms, removedAgents []string) {
	d.mu.Lock()
	var target *room.Room
	var matchedKey string
	for _, candidate := range d.namespaceCandidates(slug) {
		if r, ok := d.byNamespaceSlug[candidate]; ok {
			target, matchedKey = r, candidate
			break
		}
	}
	if target == nil {
		d.mu.Unlock()
		return nil, nil
	}
	delete(d.byNamespaceSlug, matchedKey)
	delete(d.byRoomID, target.RoomID)
	d.mu.Unlock()

	assignments := target.NPCAssignments()
	removedAgents = make([]string, 0, len(assignments))
	for agentID := range assignments {
		removedAgents = append(removedAgents, agentID)
	}

	if d.store != nil {
		if err := d.store.DeleteRoom(ctx, target.RoomID); err != nil {
			d.log.Publish(logging.Event{
				Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
				Message: "failed to delete persisted room", RoomID: target.RoomID, Extra: map[string]any{"error": err.Error()},
			})
		}
		for _, agentID := range removedAgents {
			if err := d.store.DeleteNPC(ctx, agentID); err != nil {
				d.log.Publish(logging.Event{
					Time: time.Now(), Severity: logging.SeverityWarn, Category: logging.CategoryRoom,
					Message: "failed to delete persisted npc", RoomID: target.RoomID, Extra: map[string]any{"agentId": agentID, "error": err.Error()},
				})
			}
		}
	}

	d.log.Publish(logging.Event{
		Time:      time.Now(),
		Severity:  logging.SeverityInfo,
		Category:  logging.CategoryRoom,
		Message:   "namespace destroyed",
		RoomID:    target.RoomID,
		Namespace: target.NamespaceSlug,
	})
	return []string{target.RoomID}, removedAgents
}
