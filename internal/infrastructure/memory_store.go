package infrastructure

import (
	"context"
	"sort"
	"sync"

	"buzzchat/internal/interfaces"
)

// MemoryStore keeps everything in process memory. Used by tests and by the
// "memory" storage driver for throwaway instances.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, ns, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[ns][key]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, ns, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.items[ns]
	if !ok {
		bucket = make(map[string][]byte)
		m.items[ns] = bucket
	}
	v := make([]byte, len(value))
	copy(v, value)
	bucket[key] = v
	return nil
}

func (m *MemoryStore) SetIfAbsent(_ context.Context, ns, key string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.items[ns]
	if !ok {
		bucket = make(map[string][]byte)
		m.items[ns] = bucket
	}
	if _, exists := bucket[key]; exists {
		return false, nil
	}
	v := make([]byte, len(value))
	copy(v, value)
	bucket[key] = v
	return true, nil
}

func (m *MemoryStore) Remove(_ context.Context, ns, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items[ns], key)
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, ns string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items[ns]))
	for k := range m.items[ns] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
