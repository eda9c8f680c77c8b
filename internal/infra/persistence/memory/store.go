// Package memory keeps encoded snapshots in process memory. It backs tests
// and ephemeral runs that still want to exercise the snapshot path.
package memory

import (
	"context"
	"sync"

	"courtcore/pkg/domain"
)

// Store implements domain.SnapshotBackend.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]byte
	saves   int
}

var _ domain.SnapshotBackend = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{buckets: make(map[string][]byte)}
}

// Load decodes the last saved snapshot. Callers never share memory with the store.
func (s *Store) Load(context.Context) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var snap domain.Snapshot
	for bucket, payload := range s.buckets {
		if err := snap.DecodeBucket(bucket, payload); err != nil {
			return domain.Snapshot{}, err
		}
	}
	return snap, nil
}

// Save implements domain.SnapshotBackend.
func (s *Store) Save(_ context.Context, snap domain.Snapshot) error {
	buckets, err := snap.EncodeBuckets()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.buckets = buckets
	s.saves++
	s.mu.Unlock()
	return nil
}

// Saves reports how many snapshots were written.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close implements domain.SnapshotBackend.
func (s *Store) Close() error { return nil }
