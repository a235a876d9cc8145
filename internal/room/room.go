// Package room implements a single SkyOffice room instance: the players
// and NPCs inside one namespace, the fixed set of shared interactables
// (computers, whiteboards), and the message handlers that react to what
// a connected client sends. Its shape is grounded on the retrieved
// corpus's Hub: a mutex-guarded map of session state plus a JSON-tagged
// message dispatch loop, generalized here from a tick-driven combat
// simulation to an event-driven presence room.
package room

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/transport"
)

const (
	computerCount   = 5
	whiteboardCount = 3
)

// Room holds everything live inside one namespace's SkyOffice instance.
type Room struct {
	mu sync.Mutex

	RoomID        string
	NamespaceSlug string
	OfficeID      string
	Domain        string
	DisplayName   string
	passwordHash  []byte

	// RegistryBacked is true for a room the reconciler created for a
	// Registry-declared office. Only a registry-backed room is eligible
	// for pruning when its office disappears from the Registry; a room
	// created for an ad-hoc human session is never pruned this way.
	RegistryBacked bool

	players         map[string]*playerSession
	npcAssignments  map[string]*model.NpcAssignment
	computers       []*model.Resource
	whiteboards     []*model.Resource
	metadata        model.Metadata
	streamingPeerOf map[string]string

	log logging.Publisher

	OnDispose func(*Room)
}

type playerSession struct {
	session *transport.Session
	player  model.Player
	agentID string // non-empty for NPC-controlled sessions
}

// Config carries the fields needed to construct a room, mirroring the
// persisted store.Room / Registry office shape.
type Config struct {
	RoomID         string
	NamespaceSlug  string
	OfficeID       string
	Domain         string
	DisplayName    string
	PasswordHash   string
	RegistryBacked bool
	Metadata       model.Metadata
	Log            logging.Publisher
}

// New constructs an empty room with the fixed computer/whiteboard set.
func New(cfg Config) *Room {
	log := cfg.Log
	if log == nil {
		log = logging.NopPublisher{}
	}
	metadata := cfg.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	r := &Room{
		RoomID:          cfg.RoomID,
		NamespaceSlug:   cfg.NamespaceSlug,
		OfficeID:        cfg.OfficeID,
		Domain:          cfg.Domain,
		DisplayName:     cfg.DisplayName,
		passwordHash:    []byte(cfg.PasswordHash),
		RegistryBacked:  cfg.RegistryBacked,
		players:         make(map[string]*playerSession),
		npcAssignments:  make(map[string]*model.NpcAssignment),
		streamingPeerOf: make(map[string]string),
		metadata:        metadata,
		log:             log,
	}
	for i := 0; i < computerCount; i++ {
		res := model.NewResource(computerID(i))
		r.computers = append(r.computers, &res)
	}
	for i := 0; i < whiteboardCount; i++ {
		res := model.NewResource(whiteboardID(i))
		r.whiteboards = append(r.whiteboards, &res)
	}
	return r
}

func computerID(i int) string   { return "computer-" + itoa(i) }
func whiteboardID(i int) string { return "whiteboard-" + itoa(i) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// CheckPassword reports whether candidate matches the room's password.
// A room with no password hash set accepts any candidate.
func (r *Room) CheckPassword(candidate string) bool {
	if len(r.passwordHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(r.passwordHash, []byte(candidate)) == nil
}

// SetPassword hashes and stores a new room password. An empty password
// clears the room's password requirement.
func (r *Room) SetPassword(plaintext string) error {
	if plaintext == "" {
		r.mu.Lock()
		r.passwordHash = nil
		r.mu.Unlock()
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.passwordHash = hash
	r.mu.Unlock()
	return nil
}

// IsEmpty reports whether the room has no connected sessions and no NPC
// assignments — the precondition a directory checks before disposing a
// room under its compare-on-delete semantics.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0 && len(r.npcAssignments) == 0
}

// PlayerCount returns the number of connected human+NPC sessions.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) logEvent(severity logging.Severity, message string, extra map[string]any) {
	r.log.Publish(logging.Event{
		Time:     time.Now(),
		Severity: severity,
		Category: logging.CategoryRoom,
		Message:  message,
		RoomID:   r.RoomID,
		Namespace: r.NamespaceSlug,
		Extra:    extra,
	})
}
