package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/ordo/pkg/ports"
)

// SnapshotStore implements ports.SnapshotStore using an in-memory map.
// It backs the "mem:" scheme and tests.
type SnapshotStore struct {
	snapshots map[string][]byte
	mu        sync.RWMutex
}

// NewSnapshotStore creates a new in-memory snapshot store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string][]byte),
	}
}

// Save stores a copy of data
func (s *SnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[key] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the stored data
func (s *SnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.snapshots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, key)
	}

	return append([]byte(nil), data...), nil
}

// Delete removes a snapshot
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, key)
	return nil
}

// Exists checks if a snapshot is stored
func (s *SnapshotStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.snapshots[key]
	return ok, nil
}

// List returns the stored keys in sorted order
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.snapshots))
	for k := range s.snapshots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}
