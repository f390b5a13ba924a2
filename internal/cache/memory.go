package cache

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	puts    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func memKey(stage Stage, key string) string {
	return string(stage) + "/" + key
}

func (m *MemoryStore) Get(ctx context.Context, stage Stage, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[memKey(stage, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Put(ctx context.Context, stage Stage, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memKey(stage, key)] = append([]byte(nil), value...)
	m.puts++
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, stage Stage, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memKey(stage, key))
	return nil
}

// Len returns the number of entries in a stage namespace.
func (m *MemoryStore) Len(stage Stage) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := string(stage) + "/"
	n := 0
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// Puts counts writes since creation.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
