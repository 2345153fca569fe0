// Package memory keeps the rotation snapshot in process memory. It backs
// tests and ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"github.com/example/court-rotation/internal/persistence"
)

// Storage is an in-memory persistence.SnapshotRepository.
type Storage struct {
	mu       sync.RWMutex
	snapshot *persistence.Snapshot
	saves    int
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// LoadSnapshot returns a copy of the last saved snapshot.
func (s *Storage) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return persistence.Snapshot{}, persistence.ErrNotFound
	}
	return s.snapshot.Clone(), nil
}

// SaveSnapshot replaces the stored snapshot.
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := snapshot.Clone()
	s.snapshot = &clone
	s.saves++
	return nil
}

// DeleteSnapshot forgets the stored snapshot.
func (s *Storage) DeleteSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = nil
	return nil
}

// Saves returns how many snapshots have been written.
func (s *Storage) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
