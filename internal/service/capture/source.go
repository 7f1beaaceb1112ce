// Package capture owns frame sources and the pump that reads them.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrEndOfStream is returned by a Source that has no more frames to give.
var ErrEndOfStream = errors.New("end of stream")

// Frame is a decoded image. Whoever holds a Frame closes it.
type Frame interface {
	Size() (width, height int)
	Close() error
}

// Source yields frames from a device or file.
type Source interface {
	Read() (Frame, error)
	Close() error
}

// Opener opens a fresh Source. The pump calls it lazily so a missing device only fails the
// pipeline that needs it.
type Opener func() (Source, error)

// loopSource restarts a finite source from its first frame on end of stream.
type loopSource struct {
	open Opener
	mu   sync.Mutex
	src  Source
}

// Loop returns a Source that replays the source produced by open forever. End of stream is
// never reported; a source that cannot be reopened, or that is empty right after reopening,
// is a hard error.
func Loop(open Opener) (Source, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	return &loopSource{open: open, src: src}, nil
}

// LoopOpener adapts open into an Opener of looping sources.
func LoopOpener(open Opener) Opener {
	return func() (Source, error) {
		return Loop(open)
	}
}

func (l *loopSource) Read() (Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.src == nil {
		return nil, ErrEndOfStream
	}

	frame, err := l.src.Read()
	if err == nil {
		return frame, nil
	}
	if !errors.Is(err, ErrEndOfStream) {
		return nil, err
	}

	l.src.Close()
	l.src = nil

	src, err := l.open()
	if err != nil {
		return nil, fmt.Errorf("failed to reopen source: %w", err)
	}
	l.src = src

	frame, err = src.Read()
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return nil, errors.New("source yielded no frame after rewind")
		}
		return nil, fmt.Errorf("failed to read after rewind: %w", err)
	}
	return frame, nil
}

func (l *loopSource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.src == nil {
		return nil
	}
	err := l.src.Close()
	l.src = nil
	return err
}

// pacedSource spaces reads at least interval apart.
type pacedSource struct {
	Source
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
	next     time.Time
}

// Paced limits src to one frame per interval, the playback rate of a file. A zero interval
// returns src unchanged.
func Paced(src Source, interval time.Duration) Source {
	if interval <= 0 {
		return src
	}
	return &pacedSource{Source: src, interval: interval, now: time.Now, sleep: time.Sleep}
}

func (s *pacedSource) Read() (Frame, error) {
	now := s.now()
	if wait := s.next.Sub(now); wait > 0 {
		s.sleep(wait)
		now = s.next
	}
	s.next = now.Add(s.interval)
	return s.Source.Read()
}
