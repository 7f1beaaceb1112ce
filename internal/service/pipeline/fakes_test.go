package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/capture"
	"crowdwatch/internal/service/tracker"
)

type fakeFrame struct{ seq int }

func (f *fakeFrame) Size() (int, int) { return 100, 100 }
func (f *fakeFrame) Close() error     { return nil }

type fakeSource struct {
	mu    sync.Mutex
	count int // negative for endless
	next  int
	delay time.Duration
}

func (s *fakeSource) Read() (capture.Frame, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count >= 0 && s.next >= s.count {
		return nil, capture.ErrEndOfStream
	}
	s.next++
	return &fakeFrame{seq: s.next}, nil
}

func (s *fakeSource) Close() error { return nil }

// fakeDetector reports one person moving right; it fails from frame failAt on when set.
type fakeDetector struct {
	failAt int
	err    error
}

func (d *fakeDetector) Detect(frame capture.Frame) ([]model.Detection, error) {
	seq := frame.(*fakeFrame).seq
	if d.failAt > 0 && seq >= d.failAt {
		return nil, d.err
	}
	x := seq % 50
	return []model.Detection{{Box: model.Box{X1: x, Y1: 10, X2: x + 20, Y2: 60}, Confidence: 0.9}}, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls map[View]int
}

func (r *fakeRenderer) Render(frame capture.Frame, view View, overlay Overlay) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[View]int)
	}
	r.calls[view]++
	return []byte(fmt.Sprintf("%s:%d:%d", view, overlay.Snapshot.FrameSeq, overlay.Snapshot.PeopleCount)), nil
}

func (r *fakeRenderer) count(view View) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[view]
}

// recordingDetector remembers the sequence of every frame it sees and takes delay per frame.
type recordingDetector struct {
	delay  time.Duration
	onCall func()

	mu   sync.Mutex
	seen []int
}

func (d *recordingDetector) Detect(frame capture.Frame) ([]model.Detection, error) {
	d.mu.Lock()
	d.seen = append(d.seen, frame.(*fakeFrame).seq)
	d.mu.Unlock()
	if d.onCall != nil {
		d.onCall()
	}
	time.Sleep(d.delay)
	return nil, nil
}

func (d *recordingDetector) calls() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.seen...)
}

var errDetector = errors.New("inference failed")

func newTestPipeline(t *testing.T, name string, src *fakeSource, det Detector, ren Renderer) *Pipeline {
	t.Helper()
	pump := capture.NewPump(name, func() (capture.Source, error) { return src, nil }, logger.Discard(), nil)
	return pipelineWithPump(t, name, pump, det, ren)
}

func newOrderedTestPipeline(t *testing.T, name string, src *fakeSource, det Detector, ren Renderer) *Pipeline {
	t.Helper()
	pump := capture.NewOrderedPump(name, func() (capture.Source, error) { return src, nil }, logger.Discard(), nil)
	return pipelineWithPump(t, name, pump, det, ren)
}

func pipelineWithPump(t *testing.T, name string, pump *capture.Pump, det Detector, ren Renderer) *Pipeline {
	t.Helper()
	cfg := tracker.DefaultConfig()
	cfg.InitializationDelay = 0
	tr, err := tracker.New(cfg)
	require.NoError(t, err)
	cell, err := analytics.NewThresholdCell(model.Thresholds{Low: 30, High: 70})
	require.NoError(t, err)

	agg := analytics.NewAggregator(tr, analytics.NewStore(), cell)
	return New(name, pump, det, ren, agg, logger.Discard(), nil)
}
