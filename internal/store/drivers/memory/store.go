// Package memory provides an in-memory store driver. It backs tests and the
// degrade path for when durable storage fails mid-session.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pavohq/folio/internal/store"
)

type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	token   string
	hasTok  bool
	profile []byte
	cache   map[string]entry
}

type entry struct {
	payload   []byte
	fetchedAt time.Time
}

func NewStore(cacheTTL time.Duration) *Store {
	if cacheTTL <= 0 {
		cacheTTL = store.DefaultCacheTTL
	}
	return &Store{
		ttl:   cacheTTL,
		now:   time.Now,
		cache: make(map[string]entry),
	}
}

func (s *Store) Sessions() store.Sessions { return (*sessions)(s) }
func (s *Store) Cache() store.Cache       { return (*cache)(s) }

func (s *Store) ApplyMigrations() error       { return nil }
func (s *Store) Close() error                 { return nil }
func (s *Store) Ping(_ context.Context) error { return nil }

type sessions Store

func (r *sessions) Token(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasTok {
		return "", store.ErrNotFound
	}
	return r.token, nil
}

func (r *sessions) User(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.profile == nil {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(r.profile))
	copy(out, r.profile)
	return out, nil
}

func (r *sessions) SetSession(_ context.Context, token string, user []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = make([]byte, len(user))
	copy(r.profile, user)
	r.token = token
	r.hasTok = true
	return nil
}

func (r *sessions) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = ""
	r.hasTok = false
	r.profile = nil
	r.cache = make(map[string]entry)
	return nil
}

type cache Store

func (r *cache) Get(_ context.Context, endpoint string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.cache[endpoint]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.now().Sub(e.fetchedAt) > r.ttl {
		delete(r.cache, endpoint)
		return nil, store.ErrNotFound
	}
	return e.payload, nil
}

func (r *cache) Put(_ context.Context, endpoint string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]byte, len(payload))
	copy(buf, payload)
	r.cache[endpoint] = entry{payload: buf, fetchedAt: r.now()}
	return nil
}

func (r *cache) Invalidate(_ context.Context, prefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.cache {
		if strings.HasPrefix(k, prefix) {
			delete(r.cache, k)
		}
	}
	return nil
}

func (r *cache) InvalidateAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]entry)
	return nil
}
