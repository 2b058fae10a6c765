package authsdk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// errAbsent is the in-process stores' miss sentinel. Callers of the
// SessionStore/RequestCache interfaces treat any error as a miss, so the
// concrete value never escapes.
var errAbsent = errors.New("authsdk: no value")

// memStore is the default in-process SessionStore. It honors the same commit
// ordering contract as the durable drivers but lives only as long as the
// process, which is what tests and one-shot tools want.
type memStore struct {
	mu      sync.Mutex
	token   string
	hasTok  bool
	profile []byte
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) Token(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasTok {
		return "", errAbsent
	}
	return m.token, nil
}

func (m *memStore) User(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil, errAbsent
	}
	return m.profile, nil
}

func (m *memStore) SetSession(_ context.Context, token string, user []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = user
	m.token = token
	m.hasTok = true
	return nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.hasTok = false
	m.profile = nil
	return nil
}

// memCache is the default in-process RequestCache with lazy TTL eviction.
type memCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	payload   []byte
	fetchedAt time.Time
}

func newMemCache(ttl time.Duration) *memCache {
	return &memCache{ttl: ttl, entries: make(map[string]memEntry)}
}

func (m *memCache) Get(_ context.Context, endpoint string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[endpoint]
	if !ok {
		return nil, errAbsent
	}
	if time.Since(e.fetchedAt) > m.ttl {
		delete(m.entries, endpoint)
		return nil, errAbsent
	}
	return e.payload, nil
}

func (m *memCache) Put(_ context.Context, endpoint string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[endpoint] = memEntry{payload: payload, fetchedAt: time.Now()}
	return nil
}

func (m *memCache) Invalidate(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *memCache) InvalidateAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memEntry)
	return nil
}
