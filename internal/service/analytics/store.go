package analytics

import (
	"sync"
	"sync/atomic"

	"crowdwatch/internal/model"
)

// Store holds the latest published snapshot. Readers load it without locking; the
// aggregator replaces it wholesale on every frame.
type Store struct {
	current   atomic.Pointer[model.Snapshot]
	mu        sync.RWMutex
	listeners []func(model.Snapshot)
}

// NewStore returns a store holding the empty pre-first-frame snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&model.Snapshot{})
	return s
}

// Load returns the most recently published snapshot.
func (s *Store) Load() model.Snapshot {
	return *s.current.Load()
}

// Publish replaces the snapshot and notifies listeners on the caller's goroutine.
// Listeners must not block.
func (s *Store) Publish(snap model.Snapshot) {
	s.current.Store(&snap)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.listeners {
		fn(snap)
	}
}

// OnPublish registers fn to be called after every Publish.
func (s *Store) OnPublish(fn func(model.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
