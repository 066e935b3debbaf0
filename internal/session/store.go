package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps sessions between the automatic phase and the user's crop
// submission. Take is one-shot: the session is removed as it is returned.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Take(ctx context.Context, id string) (*Session, error)
}

// MemoryStore is an in-process Store with a TTL.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memEntry
	taken   map[string]time.Time // tombstones, expire with the ttl
}

type memEntry struct {
	s       *Session
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memEntry),
		taken:   make(map[string]time.Time),
	}
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.entries[s.ID] = memEntry{s: s, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Take(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	if _, ok := m.taken[id]; ok {
		return nil, ErrUsed
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, id)
	m.taken[id] = m.now().Add(m.ttl)
	return e.s, nil
}

// Len reports live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	return len(m.entries)
}

func (m *MemoryStore) sweep() {
	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}
	for id, exp := range m.taken {
		if now.After(exp) {
			delete(m.taken, id)
		}
	}
}
