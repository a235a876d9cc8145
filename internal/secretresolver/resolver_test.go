package secretresolver

import (
	"context"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestResolvePrefersStaticSecret(t *testing.T) {
	r := New([]byte("static-secret"), nil, nil, nil)
	secret, tier, err := r.Resolve(context.Background(), "office-1", "agent-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tier != TierStatic {
		t.Errorf("tier = %s, want %s", tier, TierStatic)
	}
	if string(secret) != "static-secret" {
		t.Errorf("secret = %q, want %q", secret, "static-secret")
	}
}

func TestResolveFailsWithNoTiersAvailable(t *testing.T) {
	r := New(nil, nil, nil, nil)
	_, _, err := r.Resolve(context.Background(), "office-1", "agent-1")
	if err == nil {
		t.Fatal("expected Resolve to fail with no configured tiers")
	}
}

func TestTTLCacheExpiresEntries(t *testing.T) {
	c := newTTLCache(0)
	now := fixedNow()
	c.set("k", []byte("v"), now)
	if _, ok := c.get("k", now.Add(time.Millisecond)); ok {
		t.Error("expected zero-TTL entry to be expired immediately after set")
	}
}
