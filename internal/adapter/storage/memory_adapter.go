package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/rl1809/shop-admin/internal/port"
)

type memoryEntry struct {
	data    []byte
	version int64
}

// MemoryStore keeps state entries in process memory. Used by tests, the
// stress tool and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(ctx context.Context, key string) (port.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return port.Snapshot{}, nil
	}
	return port.Snapshot{Data: slices.Clone(entry.data), Version: entry.version}, nil
}

func (m *MemoryStore) Store(ctx context.Context, key string, data []byte, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[key].version != expectedVersion {
		return port.ErrOptimisticLock
	}
	m.entries[key] = memoryEntry{data: slices.Clone(data), version: expectedVersion + 1}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
