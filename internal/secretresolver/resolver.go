// Package secretresolver implements the three-tier presence-token
// secret chain: a statically configured shared secret, falling back to
// a Registry-declared tenant key fetched from the secret store, falling
// back to a per-agent credential minted by the Registry on demand.
// Registry-derived results are cached with a short TTL so a burst of
// handshakes for the same office or agent does not hammer the Registry
// or the secret store.
package secretresolver

import (
	"context"
	"fmt"
	"time"

	"skyoffice-presence/server/internal/logging"
	"skyoffice-presence/server/internal/registryclient"
	"skyoffice-presence/server/internal/secretstore"
)

const defaultCacheTTL = 5 * time.Minute

// Tier identifies which stage of the chain produced a secret, useful
// for logging and for tests asserting fallback behaviour.
type Tier string

const (
	TierStatic     Tier = "static"
	TierTenantKey  Tier = "tenant-key"
	TierCredential Tier = "credential"
)

// Resolver resolves the signing secret to use when verifying a given
// office/agent's presence token.
type Resolver struct {
	staticSecret []byte
	registry     *registryclient.Client
	store        secretstore.Store
	cache        *ttlCache
	loadedPaths  *onceSet
	log          logging.Publisher
}

// New constructs a Resolver. staticSecret may be nil to skip tier one.
// registry and store may be nil, in which case tiers two and three are
// unavailable and Resolve fails once the static secret is exhausted.
func New(staticSecret []byte, registry *registryclient.Client, store secretstore.Store, log logging.Publisher) *Resolver {
	if log == nil {
		log = logging.NopPublisher{}
	}
	return &Resolver{
		staticSecret: staticSecret,
		registry:     registry,
		store:        store,
		cache:        newTTLCache(defaultCacheTTL),
		loadedPaths:  newOnceSet(),
		log:          log,
	}
}

// Resolve returns the secret to verify a token for (officeID, agentID),
// trying each tier of the chain in order and reporting which tier
// ultimately succeeded.
func (r *Resolver) Resolve(ctx context.Context, officeID, agentID string) ([]byte, Tier, error) {
	if len(r.staticSecret) > 0 {
		return r.staticSecret, TierStatic, nil
	}

	now := time.Now()

	tenantKeyCacheKey := "tenant-key:" + officeID
	if cached, ok := r.cache.get(tenantKeyCacheKey, now); ok {
		return cached, TierTenantKey, nil
	}
	if secret, ok := r.resolveTenantKey(ctx, officeID); ok {
		r.cache.set(tenantKeyCacheKey, secret, now)
		return secret, TierTenantKey, nil
	}

	credentialCacheKey := "credential:" + officeID + ":" + agentID
	if cached, ok := r.cache.get(credentialCacheKey, now); ok {
		return cached, TierCredential, nil
	}
	if secret, ok := r.resolveCredential(ctx, officeID, agentID); ok {
		r.cache.set(credentialCacheKey, secret, now)
		return secret, TierCredential, nil
	}

	return nil, "", fmt.Errorf("secretresolver: no secret available for office %q agent %q", officeID, agentID)
}

func (r *Resolver) resolveTenantKey(ctx context.Context, officeID string) ([]byte, bool) {
	if r.registry == nil || r.store == nil {
		return nil, false
	}
	keys := r.registry.TenantKeys(ctx, officeID)
	key, ok := selectSkyofficeKey(keys)
	if !ok {
		return nil, false
	}
	path, ok := secretsPathFor(key)
	if !ok {
		return nil, false
	}

	// Cached by path, not just by office: two offices can declare tenant
	// keys backed by the same secrets path, and a per-office cache miss
	// shouldn't force a redundant fetch of a path another office already
	// warmed.
	now := time.Now()
	pathCacheKey := "secret-path:" + path
	if cached, ok := r.cache.get(pathCacheKey, now); ok {
		return cached, true
	}

	blob, err := r.store.Fetch(ctx, path)
	if err != nil {
		r.log.Publish(logging.Event{
			Time:     time.Now(),
			Severity: logging.SeverityWarn,
			Category: logging.CategoryAuth,
			Message:  "failed to fetch tenant key secret from secret store",
			Extra:    map[string]any{"officeId": officeID, "path": path, "error": err.Error()},
		})
		return nil, false
	}
	secret, err := parseSecretBlob(blob)
	if err != nil {
		return nil, false
	}

	r.cache.set(pathCacheKey, secret, now)
	if r.loadedPaths.tryMark(path) {
		r.log.Publish(logging.Event{
			Time:     time.Now(),
			Severity: logging.SeverityInfo,
			Category: logging.CategoryAuth,
			Message:  "loaded tenant key secret from secret store",
			Extra:    map[string]any{"officeId": officeID, "path": path},
		})
	}
	return secret, true
}

func (r *Resolver) resolveCredential(ctx context.Context, officeID, agentID string) ([]byte, bool) {
	if r.registry == nil || agentID == "" {
		return nil, false
	}
	value, ok := r.registry.RequestCredential(ctx, officeID, agentID)
	if !ok {
		return nil, false
	}
	return []byte(value), true
}

// InvalidateOffice drops any cached tenant-key secret for officeID,
// forcing the next Resolve to re-fetch it from the Registry.
func (r *Resolver) InvalidateOffice(officeID string) {
	r.cache.invalidate("tenant-key:" + officeID)
}
