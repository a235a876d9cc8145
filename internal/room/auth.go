package room

import (
	"context"
	"time"

	"skyoffice-presence/server/internal/authtoken"
	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/secretresolver"
)

// AuthFailureKind mirrors the HTTP-shaped outcome onAuth maps its
// decision to, so the transport layer can translate it into the right
// close code without re-deriving the reasoning.
type AuthFailureKind string

const (
	AuthFailureNone              AuthFailureKind = ""
	AuthFailureNamespaceMismatch AuthFailureKind = "namespace-mismatch" // 403
	AuthFailureBadPassword       AuthFailureKind = "bad-password"       // 403
	AuthFailureBadToken          AuthFailureKind = "bad-token"          // 403
	AuthFailureNamespaceMoved    AuthFailureKind = "namespace-moved"    // 410
	AuthFailurePayloadMismatch   AuthFailureKind = "payload-mismatch"   // 403
	AuthFailureNoAssignment      AuthFailureKind = "no-assignment"      // 404
)

// AuthRequest is what a connecting client presents at handshake time.
type AuthRequest struct {
	NamespaceSlug string
	Password      string

	// NPC handshake fields. A request is treated as an NPC handshake
	// when Token is non-empty.
	Token    string
	AgentID  string
	OfficeID string
}

// AuthDecision is onAuth's verdict.
type AuthDecision struct {
	OK       bool
	Failure  AuthFailureKind
	Reason   string
	IsNPC    bool
	AgentID  string
	Token    *authtoken.ManagerTokenPayload
}

// Authenticate runs the onAuth handshake against req. movedToSlug, when
// non-empty, signals that this room's namespace has moved and any
// handshake not already targeting it should be redirected (410).
func (r *Room) Authenticate(ctx context.Context, req AuthRequest, resolver *secretresolver.Resolver, movedToSlug string) AuthDecision {
	if req.NamespaceSlug != "" && req.NamespaceSlug != r.NamespaceSlug {
		return AuthDecision{OK: false, Failure: AuthFailureNamespaceMismatch, Reason: "namespace slug does not match this room"}
	}

	if movedToSlug != "" && movedToSlug != r.NamespaceSlug {
		return AuthDecision{OK: false, Failure: AuthFailureNamespaceMoved, Reason: "namespace has moved to " + movedToSlug}
	}

	if req.Token == "" {
		if !r.CheckPassword(req.Password) {
			return AuthDecision{OK: false, Failure: AuthFailureBadPassword, Reason: "incorrect room password"}
		}
		return AuthDecision{OK: true}
	}

	return r.authenticateNPC(ctx, req, resolver)
}

func (r *Room) authenticateNPC(ctx context.Context, req AuthRequest, resolver *secretresolver.Resolver) AuthDecision {
	if resolver == nil {
		return AuthDecision{OK: false, Failure: AuthFailureBadToken, Reason: "no secret resolver configured"}
	}

	if req.AgentID != "" && !r.HasNPCAssignment(req.AgentID) {
		return AuthDecision{OK: false, Failure: AuthFailureNoAssignment, Reason: "no NPC assignment for this agent in this room"}
	}

	officeID := req.OfficeID
	if officeID == "" {
		officeID = r.OfficeID
	}

	secret, _, err := resolver.Resolve(ctx, officeID, req.AgentID)
	if err != nil {
		return AuthDecision{OK: false, Failure: AuthFailureBadToken, Reason: "no signing secret available: " + err.Error()}
	}

	payload, err := authtoken.Verify(req.Token, secret, time.Now().Unix())
	if err != nil {
		return AuthDecision{OK: false, Failure: AuthFailureBadToken, Reason: err.Error()}
	}

	if payload.EffectiveNamespace() != "" && payload.EffectiveNamespace() != r.NamespaceSlug {
		return AuthDecision{OK: false, Failure: AuthFailureNamespaceMismatch, Reason: "token namespace does not match this room"}
	}
	if req.AgentID != "" && payload.AgentID != "" && req.AgentID != payload.AgentID {
		return AuthDecision{OK: false, Failure: AuthFailurePayloadMismatch, Reason: "agentId in handshake does not match token"}
	}
	if req.OfficeID != "" && payload.OfficeID != "" && req.OfficeID != payload.OfficeID {
		return AuthDecision{OK: false, Failure: AuthFailurePayloadMismatch, Reason: "officeId in handshake does not match token"}
	}

	agentID := req.AgentID
	if agentID == "" {
		agentID = payload.AgentID
	}

	return AuthDecision{OK: true, IsNPC: true, AgentID: agentID, Token: payload}
}

func (r *Room) logAuthFailure(d AuthDecision) {
	r.logEvent(logging.SeverityWarn, "handshake rejected", map[string]any{
		"failure": string(d.Failure),
		"reason":  d.Reason,
	})
}
