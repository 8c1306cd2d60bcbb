package auth

import (
	"context"
	"sync"
	"time"
)

// KeyLookup resolves an API key to its owner, "" when unknown.
type KeyLookup interface {
	GetAPIKey(ctx context.Context, apiKey string) (string, error)
}

type cacheEntry struct {
	owner     string
	expiresAt time.Time
}

type Authenticator struct {
	localCache sync.Map
	lookup     KeyLookup
	ttl        time.Duration
	staticKeys map[string]bool
	now        func() time.Time
}

// NewAuthenticator accepts the static keys from config and an optional
// lookup (nil when Redis is disabled).
func NewAuthenticator(validKeys []string, ttl time.Duration, lookup KeyLookup) *Authenticator {
	staticKeys := make(map[string]bool, len(validKeys))
	for _, k := range validKeys {
		if k != "" {
			staticKeys[k] = true
		}
	}

	return &Authenticator{
		lookup:     lookup,
		ttl:        ttl,
		staticKeys: staticKeys,
		now:        time.Now,
	}
}

// Enabled reports whether any key source is configured. With none, the
// status API is open.
func (a *Authenticator) Enabled() bool {
	return len(a.staticKeys) > 0 || a.lookup != nil
}

func (a *Authenticator) Validate(ctx context.Context, apiKey string) bool {
	// Level 0: static config keys
	if a.staticKeys[apiKey] {
		return true
	}

	// Level 1: in-memory cache
	if raw, ok := a.localCache.Load(apiKey); ok {
		entry := raw.(cacheEntry)
		if a.now().Before(entry.expiresAt) {
			return true
		}
		a.localCache.Delete(apiKey)
	}

	// Level 2: Redis lookup
	if a.lookup == nil {
		return false
	}
	owner, err := a.lookup.GetAPIKey(ctx, apiKey)
	if err != nil || owner == "" {
		return false
	}

	a.localCache.Store(apiKey, cacheEntry{
		owner:     owner,
		expiresAt: a.now().Add(a.ttl),
	})

	return true
}
