// Package reconciler periodically reconciles this process's rooms and
// NPC assignments against what the Registry currently declares: creating
// rooms for new offices, pruning rooms for offices that disappeared, and
// syncing each office's agent roster into NPC assignments. Its drive
// loop is grounded on the retrieved corpus's fixed-rate ticker pattern
// (RunSimulation), generalized from a per-tick physics step to a
// per-interval Registry sync, with an in-flight gate so an
// admin-triggered sync and the periodic tick never overlap.
package reconciler

import (
	"context"
	"strings"
	"sync"
	"time"

	"skyoffice-presence/server/internal/directory"
	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/model"
	"skyoffice-presence/server/internal/registryclient"
	"skyoffice-presence/server/internal/room"
	"skyoffice-presence/server/internal/store"
)

const (
	minAgentSyncBackoff = 5 * time.Second
	maxAgentSyncBackoff = 5 * time.Minute
)

// Config carries the knobs Reconciler needs beyond its collaborators.
type Config struct {
	SyncInterval     time.Duration
	OfficeBaseDomain string
	DefaultVoiceID   string
}

// Reconciler owns the periodic Registry sync loop.
type Reconciler struct {
	cfg       Config
	registry  *registryclient.Client
	directory *directory.Directory
	store     *store.Store
	log       logging.Publisher

	inFlight sync.Mutex

	agentSyncMu  sync.Mutex
	nextAttempt  map[string]time.Time
	backoff      map[string]time.Duration
}

// New constructs a Reconciler. store may be nil, in which case room and
// NPC state is reconciled in memory only and nothing is persisted.
func New(cfg Config, registry *registryclient.Client, dir *directory.Directory, st *store.Store, log logging.Publisher) *Reconciler {
	if log == nil {
		log = logging.NopPublisher{}
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Minute
	}
	return &Reconciler{
		cfg:         cfg,
		registry:    registry,
		directory:   dir,
		store:       st,
		log:         log,
		nextAttempt: make(map[string]time.Time),
		backoff:     make(map[string]time.Duration),
	}
}

// Run blocks, ticking Tick at the configured interval until ctx is
// cancelled. Bootstrap (an immediate tick before the first interval
// elapses) is the caller's responsibility — see Bootstrap.
func (rc *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(rc.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.Tick(ctx)
		}
	}
}

// Bootstrap runs one reconciliation pass immediately, intended to be
// called once at process startup before Run's first interval elapses,
// so rooms exist before the HTTP server starts accepting handshakes.
func (rc *Reconciler) Bootstrap(ctx context.Context) {
	rc.Tick(ctx)
}

// Tick runs a single reconciliation pass: ensure a room exists for
// every Registry office, prune rooms for offices that no longer exist,
// and sync each office's agent roster. Overlapping calls collapse: if a
// previous Tick is still running, this one returns immediately.
func (rc *Reconciler) Tick(ctx context.Context) {
	if !rc.inFlight.TryLock() {
		rc.log.Publish(logging.Event{
			Time: time.Now(), Severity: logging.SeverityDebug, Category: logging.CategoryReconcile,
			Message: "skipping tick, previous reconciliation still in flight",
		})
		return
	}
	defer rc.inFlight.Unlock()

	offices := rc.registry.ListOffices(ctx)
	keepSlugs := make(map[string]bool, len(offices))
	for _, office := range offices {
		keepSlugs[office.NamespaceSlug] = true
		rc.ensureRoom(ctx, office)
	}

	pruned := rc.directory.PruneNamespacesNotIn(ctx, keepSlugs)
	for _, slug := range pruned {
		rc.log.Publish(logging.Event{
			Time: time.Now(), Severity: logging.SeverityInfo, Category: logging.CategoryReconcile,
			Message: "pruned namespace no longer present in registry", Namespace: slug,
		})
	}

	for _, office := range offices {
		rc.maybeScheduleAgentSync(ctx, office)
	}
}

func (rc *Reconciler) ensureRoom(ctx context.Context, office model.Office) {
	if _, ok := rc.directory.GetByNamespaceSlug(office.NamespaceSlug); ok {
		return
	}

	r := room.New(room.Config{
		RoomID:         office.OfficeID,
		NamespaceSlug:  office.NamespaceSlug,
		OfficeID:       office.OfficeID,
		Domain:         office.Domain,
		DisplayName:    office.DisplayName,
		RegistryBacked: true,
		Metadata:       office.Metadata.Clone(),
		Log:            rc.log,
	})
	rc.directory.Put(r)

	if rc.store != nil {
		_ = rc.store.UpsertRoom(ctx, store.Room{
			RoomID:                r.RoomID,
			NamespaceSlug:         r.NamespaceSlug,
			OfficeID:              r.OfficeID,
			Domain:                r.Domain,
			DisplayName:           r.DisplayName,
			AgentDomainIdentifier: deriveAgentDomainIdentifier(model.Agent{}, office),
			Metadata:              office.Metadata,
		})
	}

	rc.registry.PatchOffice(ctx, office.OfficeID, r.RoomID)

	rc.log.Publish(logging.Event{
		Time: time.Now(), Severity: logging.SeverityInfo, Category: logging.CategoryReconcile,
		Message: "created room for registry office", RoomID: r.RoomID, Namespace: r.NamespaceSlug,
	})
}

// maybeScheduleAgentSync runs syncAgents for office if its per-office
// backoff window has elapsed, and adjusts that backoff based on outcome:
// doubling (capped) on a Registry fetch failure, resetting on success.
func (rc *Reconciler) maybeScheduleAgentSync(ctx context.Context, office model.Office) {
	rc.agentSyncMu.Lock()
	now := time.Now()
	if next, ok := rc.nextAttempt[office.OfficeID]; ok && now.Before(next) {
		rc.agentSyncMu.Unlock()
		return
	}
	rc.agentSyncMu.Unlock()

	ok := rc.syncAgents(ctx, office)

	rc.agentSyncMu.Lock()
	defer rc.agentSyncMu.Unlock()
	if ok {
		delete(rc.nextAttempt, office.OfficeID)
		delete(rc.backoff, office.OfficeID)
		return
	}
	backoff := rc.backoff[office.OfficeID] * 2
	if backoff < minAgentSyncBackoff {
		backoff = minAgentSyncBackoff
	}
	if backoff > maxAgentSyncBackoff {
		backoff = maxAgentSyncBackoff
	}
	rc.backoff[office.OfficeID] = backoff
	rc.nextAttempt[office.OfficeID] = now.Add(backoff)
}

// syncAgents fetches office's agent roster and upserts an NPC assignment
// for each into whichever room the office maps to. It returns false if
// the Registry fetch came back empty, treated as a transient failure
// for backoff purposes (an office legitimately having zero agents is
// indistinguishable from a failed fetch at this layer, which is an
// accepted tradeoff of the Registry's swallow-on-failure policy).
func (rc *Reconciler) syncAgents(ctx context.Context, office model.Office) bool {
	r, ok := rc.directory.GetByNamespaceSlug(office.NamespaceSlug)
	if !ok {
		return false
	}

	agents := rc.registry.ListAgents(ctx, office.OfficeID)
	if len(agents) == 0 {
		return false
	}

	for i, agent := range agents {
		assignment := buildNPCAssignment(agent, office, r.RoomID, i, rc.cfg.DefaultVoiceID)
		r.UpsertNPC(assignment)

		if rc.store != nil {
			_ = rc.store.UpsertNPC(ctx, store.NPC{
				AgentID:         assignment.AgentID,
				RegistryAgentID: assignment.RegistryAgentID,
				OfficeID:        assignment.OfficeID,
				RoomID:          assignment.RoomID,
				NamespaceSlug:   assignment.NamespaceSlug,
				Name:            assignment.Name,
				AvatarID:        assignment.AvatarID,
				WorkstationID:   assignment.WorkstationID,
				PositionX:       assignment.Position.X,
				PositionY:       assignment.Position.Y,
				Role:            assignment.Role,
				ComputerID:      assignment.ComputerID,
				VoiceAgentID:    assignment.VoiceAgentID,
				AssignedAt:      model.ParseAssignedAt(assignment.AssignedAt),
				Metadata:        assignment.AgentMetadata,
			})
		}

		rc.registry.PatchAgent(ctx, office.OfficeID, agent.ID, time.Now(), agent.Metadata)
	}
	return true
}

// buildNPCAssignment derives a room-ready NPC assignment from a
// Registry agent, deep-cloning its metadata so the room's copy cannot
// be mutated by a later Registry fetch overwriting the agent value this
// was built from.
func buildNPCAssignment(agent model.Agent, office model.Office, roomID string, slot int, defaultVoiceID string) model.NpcAssignment {
	voiceID := defaultVoiceID
	workstationID := workstationSlot(slot)
	computerID, _ := model.ComputerIDForWorkstation(workstationID)
	return model.NpcAssignment{
		AgentID:         agent.ID,
		RegistryAgentID: agent.ID,
		OfficeID:        office.OfficeID,
		Name:            agentDisplayName(agent),
		AvatarID:        agent.AvatarID,
		WorkstationID:   workstationID,
		Role:            model.NormalizeRole(agent.Role),
		ComputerID:      computerID,
		VoiceAgentID:    voiceID,
		NamespaceSlug:   office.NamespaceSlug,
		RoomID:          roomID,
		AssignedAt:      model.NowISO(time.Now()),
		AgentMetadata:   agent.Metadata.Clone(),
	}
}

func agentDisplayName(agent model.Agent) string {
	if agent.AgentIdentifier != "" {
		return agent.AgentIdentifier
	}
	return agent.ID
}

func workstationSlot(i int) string {
	const slots = 5 // matches the room's fixed computer count
	return "workstation-" + itoa(i%slots)
}

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

// deriveAgentDomainIdentifier derives the identifier used to correlate a
// room with the Registry agent domain it belongs to: the local part of
// an agent's email when available, falling back to the office id.
func deriveAgentDomainIdentifier(agent model.Agent, office model.Office) string {
	if agent.AgentEmail != "" {
		if local, _, ok := strings.Cut(agent.AgentEmail, "@"); ok {
			return local
		}
	}
	return office.OfficeID
}
