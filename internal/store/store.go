package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports an absent (or expired, for cache entries) key.
var ErrNotFound = errors.New("store: not found")

// Store is the durable client-state access interface. Concrete drivers
// (sqlite, memory) implement this. The session rows are authoritative; cache
// rows are derived and safely reconstructable from a fresh fetch.
type Store interface {
	Sessions() Sessions
	Cache() Cache

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing storage is still usable.
	Ping(ctx context.Context) error
}

// Sessions persists exactly two durable keys: the bearer token and the
// serialized user profile. It is the single source of truth for "is a user
// logged in".
type Sessions interface {
	// Token returns the persisted bearer token, or ErrNotFound.
	Token(ctx context.Context) (string, error)

	// User returns the persisted serialized profile, or ErrNotFound.
	User(ctx context.Context) ([]byte, error)

	// SetSession persists both keys atomically. The profile is written before
	// the token inside one transaction, so an interrupted commit can never
	// leave a token without its profile.
	SetSession(ctx context.Context, token string, user []byte) error

	// Clear removes the token first, then the profile, then purges every
	// cache entry, all within one transaction. No intermediate state
	// authorizes requests.
	Clear(ctx context.Context) error
}

// Cache is a time-windowed cache of successful read responses keyed by
// endpoint path. Entries older than the TTL are treated as absent, evaluated
// lazily on Get.
type Cache interface {
	// Get returns the cached payload for endpoint, or ErrNotFound when the
	// entry is missing or stale.
	Get(ctx context.Context, endpoint string) ([]byte, error)

	// Put stores payload for endpoint, replacing any previous entry and
	// restarting its TTL window.
	Put(ctx context.Context, endpoint string, payload []byte) error

	// Invalidate removes every entry whose endpoint starts with prefix.
	Invalidate(ctx context.Context, prefix string) error

	// InvalidateAll removes every entry.
	InvalidateAll(ctx context.Context) error
}

// DefaultCacheTTL is the cache staleness window applied when a driver is
// constructed with a non-positive TTL.
const DefaultCacheTTL = 60 * time.Second
