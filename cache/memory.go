package cache

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and as a stand-in
// when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	cp := Entry{Value: append([]byte(nil), e.Value...), StoredAt: e.StoredAt}
	return &cp, nil
}

func (m *MemoryStore) Put(key string, value []byte, storedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = Entry{Value: append([]byte(nil), value...), StoredAt: storedAt}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
