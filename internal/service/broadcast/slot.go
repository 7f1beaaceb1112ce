// Package broadcast fans a single producer's latest value out to any number of consumers.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Next once a slot has been closed without a more specific error.
var ErrClosed = errors.New("broadcast slot closed")

// Slot keeps only the most recent value and its sequence number. Consumers wait for a sequence
// newer than the one they last saw; a slow consumer skips values rather than holding the
// producer back.
type Slot[T any] struct {
	mu      sync.Mutex
	value   T
	seq     uint64
	err     error
	changed chan struct{}

	subscribers atomic.Int64
}

// NewSlot returns an empty open slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{changed: make(chan struct{})}
}

// Publish stores v and wakes every waiting consumer. Publishing to a closed slot is a no-op.
func (s *Slot[T]) Publish(v T) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.seq
	}
	s.value = v
	s.seq++
	close(s.changed)
	s.changed = make(chan struct{})
	return s.seq
}

// Close marks the slot finished. Waiting and future consumers receive err, or ErrClosed when
// err is nil. Only the first call has any effect.
func (s *Slot[T]) Close(err error) {
	if err == nil {
		err = ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return
	}
	s.err = err
	close(s.changed)
}

// Next blocks until a value newer than after is available, the slot is closed, or ctx is done.
// A value published before Close is still delivered once to consumers that have not seen it.
func (s *Slot[T]) Next(ctx context.Context, after uint64) (T, uint64, error) {
	for {
		s.mu.Lock()
		if s.seq > after {
			v, seq := s.value, s.seq
			s.mu.Unlock()
			return v, seq, nil
		}
		if s.err != nil {
			err, seq := s.err, s.seq
			s.mu.Unlock()
			var zero T
			return zero, seq, err
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, after, ctx.Err()
		case <-changed:
		}
	}
}

// Latest returns the current value and sequence without waiting. Sequence 0 means nothing has
// been published yet.
func (s *Slot[T]) Latest() (T, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.seq
}

// Err returns the close error, or nil while the slot is open.
func (s *Slot[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe registers interest so producers can skip work for unwatched slots. The returned
// function releases the subscription and is safe to call more than once.
func (s *Slot[T]) Subscribe() func() {
	s.subscribers.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { s.subscribers.Add(-1) })
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Slot[T]) Subscribers() int {
	return int(s.subscribers.Load())
}
