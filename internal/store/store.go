// Package store holds the single current snapshot, published atomically.
package store

import (
	"sync/atomic"

	"hostwatch/internal/status"
)

// Store keeps the latest published snapshot behind an atomic pointer:
// publishing swaps the reference, reading never blocks on an in-progress
// cycle, and a reader can never observe a mix of two cycles' data.
type Store struct {
	current atomic.Pointer[status.Snapshot]
}

// New creates a store seeded with an initial snapshot, typically the
// all-"checking" placeholder built from the configuration.
func New(initial *status.Snapshot) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Publish replaces the current snapshot.
func (s *Store) Publish(snap *status.Snapshot) {
	s.current.Store(snap)
}

// Current returns the latest published snapshot.
func (s *Store) Current() *status.Snapshot {
	return s.current.Load()
}
