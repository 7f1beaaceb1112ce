package capture

import (
	"sync"
	"sync/atomic"
	"time"
)

type fakeFrame struct {
	id     int
	closes atomic.Int32
}

func (f *fakeFrame) Size() (int, int) { return 640, 480 }

func (f *fakeFrame) Close() error {
	f.closes.Add(1)
	return nil
}

// fakeSource yields count frames, then ErrEndOfStream (or failWith when set).
type fakeSource struct {
	mu       sync.Mutex
	count    int
	next     int
	delay    time.Duration
	failWith error
	produced []*fakeFrame
	closed   atomic.Bool
}

func (s *fakeSource) Read() (Frame, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count >= 0 && s.next >= s.count {
		if s.failWith != nil {
			return nil, s.failWith
		}
		return nil, ErrEndOfStream
	}
	s.next++
	f := &fakeFrame{id: s.next}
	s.produced = append(s.produced, f)
	return f, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *fakeSource) frames() []*fakeFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeFrame(nil), s.produced...)
}
