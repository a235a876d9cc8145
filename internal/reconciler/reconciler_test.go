package reconciler

import (
	"testing"
	"time"

	"skyoffice-presence/server/internal/model"
)

func TestBuildNPCAssignmentClonesMetadataIndependently(t *testing.T) {
	agent := model.Agent{
		ID:              "agent-1",
		AgentIdentifier: "Assistant",
		Metadata:        model.Metadata{"mood": "helpful"},
	}
	office := model.Office{OfficeID: "office-1", NamespaceSlug: "acme"}

	assignment := buildNPCAssignment(agent, office, "room-1", 7, "voice-default")

	agent.Metadata["mood"] = "mutated"
	if assignment.AgentMetadata["mood"] != "helpful" {
		t.Errorf("AgentMetadata[mood] = %v, want unaffected by later agent mutation", assignment.AgentMetadata["mood"])
	}
	if assignment.Name != "Assistant" {
		t.Errorf("Name = %q, want Assistant", assignment.Name)
	}
	if assignment.WorkstationID != "workstation-2" {
		t.Errorf("WorkstationID = %q, want workstation-2 (slot 7 mod 5)", assignment.WorkstationID)
	}
}

func TestAgentDisplayNameFallsBackToID(t *testing.T) {
	if got := agentDisplayName(model.Agent{ID: "agent-1"}); got != "agent-1" {
		t.Errorf("agentDisplayName = %q, want agent-1", got)
	}
	if got := agentDisplayName(model.Agent{ID: "agent-1", AgentIdentifier: "Assistant"}); got != "Assistant" {
		t.Errorf("agentDisplayName = %q, want Assistant", got)
	}
}

func TestDeriveAgentDomainIdentifierPrefersEmailLocalPart(t *testing.T) {
	agent := model.Agent{AgentEmail: "assistant@acme.example.com"}
	office := model.Office{OfficeID: "office-1"}
	if got := deriveAgentDomainIdentifier(agent, office); got != "assistant" {
		t.Errorf("deriveAgentDomainIdentifier = %q, want assistant", got)
	}
}

func TestDeriveAgentDomainIdentifierFallsBackToOfficeID(t *testing.T) {
	office := model.Office{OfficeID: "office-1"}
	if got := deriveAgentDomainIdentifier(model.Agent{}, office); got != "office-1" {
		t.Errorf("deriveAgentDomainIdentifier = %q, want office-1", got)
	}
}

func TestMaybeScheduleAgentSyncBacksOffOnFailure(t *testing.T) {
	rc := New(Config{SyncInterval: time.Minute}, nil, nil, nil, nil)
	office := model.Office{OfficeID: "office-1", NamespaceSlug: "acme"}

	// With directory nil, GetByNamespaceSlug would panic; exercise the
	// backoff bookkeeping directly instead of through syncAgents.
	rc.agentSyncMu.Lock()
	rc.backoff[office.OfficeID] = minAgentSyncBackoff
	rc.nextAttempt[office.OfficeID] = time.Now().Add(minAgentSyncBackoff)
	rc.agentSyncMu.Unlock()

	rc.agentSyncMu.Lock()
	next, scheduled := rc.nextAttempt[office.OfficeID]
	rc.agentSyncMu.Unlock()
	if !scheduled || !next.After(time.Now()) {
		t.Error("expected a pending backoff window in the future")
	}
}
