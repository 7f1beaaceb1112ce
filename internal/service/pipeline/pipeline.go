// Package pipeline runs detection, tracking and analytics for one frame source and renders the
// annotated views its stream clients ask for.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/broadcast"
	"crowdwatch/internal/service/capture"
	"crowdwatch/internal/service/metrics"
)

// View selects how a frame is annotated.
type View string

const (
	// ViewTracking draws boxes, track identities and the count message.
	ViewTracking View = "tracking"
	// ViewArea draws boxes and the occupancy ratio without track annotations.
	ViewArea View = "area"
	// ViewRaw is the camera image as captured.
	ViewRaw View = "raw"
)

// Views lists every view a pipeline can render.
var Views = []View{ViewTracking, ViewArea, ViewRaw}

// Detector finds people in a frame. The order of the result is not significant.
type Detector interface {
	Detect(frame capture.Frame) ([]model.Detection, error)
}

// Overlay is everything a renderer may draw on a frame.
type Overlay struct {
	Detections []model.Detection
	Tracks     []model.Track
	Snapshot   model.Snapshot
}

// Renderer annotates a frame for a view and encodes it as JPEG. It must not modify frame.
type Renderer interface {
	Render(frame capture.Frame, view View, overlay Overlay) ([]byte, error)
}

// Pipeline is the single consumer of a pump and the single writer of its aggregator.
type Pipeline struct {
	name       string
	pump       *capture.Pump
	detector   Detector
	renderer   Renderer
	aggregator *analytics.Aggregator
	logger     *logger.Logger
	metrics    *metrics.Metrics

	slots map[View]*broadcast.Slot[[]byte]
	done  chan struct{}

	mu  sync.Mutex
	err error
}

// New wires a pipeline. Nothing runs until Run.
func New(name string, pump *capture.Pump, detector Detector, renderer Renderer, aggregator *analytics.Aggregator, logger *logger.Logger, m *metrics.Metrics) *Pipeline {
	slots := make(map[View]*broadcast.Slot[[]byte], len(Views))
	for _, v := range Views {
		slots[v] = broadcast.NewSlot[[]byte]()
	}
	return &Pipeline{
		name:       name,
		pump:       pump,
		detector:   detector,
		renderer:   renderer,
		aggregator: aggregator,
		logger:     logger,
		metrics:    m,
		slots:      slots,
		done:       make(chan struct{}),
	}
}

// Name identifies the pipeline in logs and routes.
func (p *Pipeline) Name() string {
	return p.name
}

// Slot returns the broadcast slot of a view, or nil for an unknown view.
func (p *Pipeline) Slot(view View) *broadcast.Slot[[]byte] {
	return p.slots[view]
}

// Store returns the snapshot store this pipeline publishes to.
func (p *Pipeline) Store() *analytics.Store {
	return p.aggregator.Store()
}

// Done is closed once Run has returned and every slot is closed.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err reports why the pipeline stopped; nil while running or after a cancel.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Run starts the pump and processes its frames until ctx is cancelled, the source ends or a
// frame fails. Every view slot is closed with the terminating error before Run returns.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	defer close(p.done)
	defer p.metrics.PipelineStarted()()

	pumpCtx, cancel := context.WithCancel(ctx)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		p.pump.Run(pumpCtx)
	}()
	defer func() {
		cancel()
		<-pumpDone
		p.finish(err)
	}()

	p.logger.Info("Pipeline %s started", p.name)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Pipeline %s stopped", p.name)
			return nil
		case <-p.pump.Done():
			return p.pump.Err()
		case c := <-p.pump.Frames():
			// select picks at random when both are ready; never start work after a cancel
			if ctx.Err() != nil {
				c.Frame.Close()
				p.logger.Info("Pipeline %s stopped", p.name)
				return nil
			}
			if err := p.process(c); err != nil {
				p.metrics.ProcessError()
				p.logger.Error("Pipeline %s failed on frame %d: %v", p.name, c.Seq, err)
				return err
			}
		}
	}
}

func (p *Pipeline) process(c capture.Captured) error {
	defer c.Frame.Close()
	start := time.Now()

	width, height := c.Frame.Size()
	detections, err := p.detector.Detect(c.Frame)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	snap, tracks := p.aggregator.Process(c.Seq, width, height, detections)
	overlay := Overlay{Detections: detections, Tracks: tracks, Snapshot: snap}

	for _, view := range Views {
		slot := p.slots[view]
		if slot.Subscribers() == 0 {
			continue
		}
		jpeg, err := p.renderer.Render(c.Frame, view, overlay)
		if err != nil {
			return fmt.Errorf("render %s view: %w", view, err)
		}
		slot.Publish(jpeg)
		p.metrics.FrameEncoded()
	}

	p.metrics.FrameProcessed(time.Since(start))
	p.logger.Debug("Pipeline %s frame %d: %d people, %s", p.name, c.Seq, snap.PeopleCount, snap.Band)
	return nil
}

func (p *Pipeline) finish(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()

	closeErr := err
	if closeErr == nil {
		closeErr = broadcast.ErrClosed
	}
	for _, slot := range p.slots {
		slot.Close(closeErr)
	}
	if err != nil && !errors.Is(err, capture.ErrEndOfStream) {
		p.logger.Warning("Pipeline %s closed its streams: %v", p.name, err)
	}
}
