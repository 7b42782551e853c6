package sessions

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store with the same TTL semantics as the
// Redis adapter. Used for tests and for running without a Redis instance.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     TTL,
		now:     time.Now,
	}
}

// Get loads a session; expired or missing entries return (nil, nil).
func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal(entry.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save stores a JSON copy of the session and refreshes its expiry.
// Serializing through JSON keeps the semantics identical to Redis: the
// caller's struct is never aliased by the store.
func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[s.ID] = memoryEntry{data: data, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

// Delete removes a session, reporting 1 if it existed.
func (m *MemoryStore) Delete(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return 0, nil
	}
	delete(m.entries, id)
	return 1, nil
}
