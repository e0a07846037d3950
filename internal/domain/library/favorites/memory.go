package favorites

import (
	"context"
	"sync"
)

// MemoryStore keeps the encoded set in memory. It is used for tests and for
// the "memory" backend, which forgets favorites on exit.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last saved set.
func (m *MemoryStore) Load(ctx context.Context) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, ErrNotStored
	}
	return decode(m.data)
}

// Save encodes and keeps the set.
func (m *MemoryStore) Save(ctx context.Context, set Set) error {
	data, err := set.MarshalJSON()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

// SetRaw replaces the stored bytes as-is.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}
