package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/service/metrics"
)

// Captured is a frame handed from a pump to its pipeline.
type Captured struct {
	Seq   uint64
	Frame Frame
	At    time.Time
}

// Pump is the only reader of a Source. A live pump reads as fast as the source allows and keeps
// just the newest frame for the consumer; a frame that was not picked up in time is closed. An
// ordered pump waits for the consumer instead, so every frame is handed over in sequence.
type Pump struct {
	name    string
	open    Opener
	ordered bool
	logger  *logger.Logger
	metrics *metrics.Metrics

	mailbox chan Captured
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// NewPump creates a pump for the source produced by open. Nothing is opened until Run.
func NewPump(name string, open Opener, logger *logger.Logger, m *metrics.Metrics) *Pump {
	return &Pump{
		name:    name,
		open:    open,
		logger:  logger,
		metrics: m,
		mailbox: make(chan Captured, 1),
		done:    make(chan struct{}),
	}
}

// NewOrderedPump creates a pump that never drops a frame. Used for files, where reading ahead of
// the consumer would skip footage instead of skipping stale frames.
func NewOrderedPump(name string, open Opener, logger *logger.Logger, m *metrics.Metrics) *Pump {
	p := NewPump(name, open, logger, m)
	p.ordered = true
	// unbuffered, so a frame counts as delivered only once the consumer holds it
	p.mailbox = make(chan Captured)
	return p
}

// Name identifies the pump in logs.
func (p *Pump) Name() string {
	return p.name
}

// Frames delivers captured frames. The receiver owns and must close each frame.
func (p *Pump) Frames() <-chan Captured {
	return p.mailbox
}

// Done is closed when Run returns.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// Err reports why the pump stopped. It is nil while running and after a context cancel.
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Run opens the source and reads until ctx is cancelled or the source fails. The source is
// released and any undelivered frame closed before Run returns.
func (p *Pump) Run(ctx context.Context) error {
	defer close(p.done)
	defer p.drain()

	src, err := p.open()
	if err != nil {
		err = fmt.Errorf("open %s: %w", p.name, err)
		p.fail(err)
		return err
	}
	defer src.Close()
	p.logger.Info("Frame source %s opened", p.name)

	var seq uint64
	for {
		if ctx.Err() != nil {
			p.logger.Info("Frame source %s stopped", p.name)
			return nil
		}

		frame, err := src.Read()
		if err != nil {
			p.metrics.ReadError()
			if !errors.Is(err, ErrEndOfStream) {
				err = fmt.Errorf("read %s: %w", p.name, err)
			}
			p.fail(err)
			return err
		}
		seq++
		p.metrics.FrameRead()
		c := Captured{Seq: seq, Frame: frame, At: time.Now()}
		if !p.ordered {
			p.deliver(c)
			continue
		}
		if !p.handOver(ctx, c) {
			p.logger.Info("Frame source %s stopped", p.name)
			return nil
		}
	}
}

// handOver waits until the consumer takes c. It reports false, closing c, if ctx ends first.
func (p *Pump) handOver(ctx context.Context, c Captured) bool {
	select {
	case p.mailbox <- c:
		return true
	case <-ctx.Done():
		c.Frame.Close()
		return false
	}
}

// deliver replaces whatever is waiting in the mailbox with c.
func (p *Pump) deliver(c Captured) {
	for {
		select {
		case p.mailbox <- c:
			return
		default:
		}
		select {
		case old := <-p.mailbox:
			old.Frame.Close()
			p.metrics.FrameDropped()
		default:
		}
	}
}

func (p *Pump) drain() {
	for {
		select {
		case c := <-p.mailbox:
			c.Frame.Close()
		default:
			return
		}
	}
}

func (p *Pump) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.logger.Error("Frame source %s ended: %v", p.name, err)
}
