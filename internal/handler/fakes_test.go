package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/analytics"
	"crowdwatch/internal/service/capture"
	"crowdwatch/internal/service/pipeline"
	"crowdwatch/internal/service/tracker"
)

type fakeFrame struct{ seq int }

func (f *fakeFrame) Size() (int, int) { return 100, 100 }
func (f *fakeFrame) Close() error     { return nil }

// endlessSource produces a frame every few milliseconds until closed.
type endlessSource struct {
	mu   sync.Mutex
	next int
}

func (s *endlessSource) Read() (capture.Frame, error) {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return &fakeFrame{seq: s.next}, nil
}

func (s *endlessSource) Close() error { return nil }

type onePersonDetector struct{}

func (onePersonDetector) Detect(frame capture.Frame) ([]model.Detection, error) {
	return []model.Detection{{Box: model.Box{X1: 10, Y1: 10, X2: 30, Y2: 60}, Confidence: 0.9}}, nil
}

type textRenderer struct{}

func (textRenderer) Render(frame capture.Frame, view pipeline.View, overlay pipeline.Overlay) ([]byte, error) {
	return []byte(fmt.Sprintf("%s:%d", view, overlay.Snapshot.FrameSeq)), nil
}

func newFileRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	factory := func(name string) (*pipeline.Pipeline, error) {
		cfg := tracker.DefaultConfig()
		cfg.InitializationDelay = 0
		tr, err := tracker.New(cfg)
		if err != nil {
			return nil, err
		}
		cell, err := analytics.NewThresholdCell(model.Thresholds{Low: 30, High: 70})
		if err != nil {
			return nil, err
		}
		agg := analytics.NewAggregator(tr, analytics.NewStore(), cell)
		pump := capture.NewPump(name, func() (capture.Source, error) { return &endlessSource{}, nil }, logger.Discard(), nil)
		return pipeline.New(name, pump, onePersonDetector{}, textRenderer{}, agg, logger.Discard(), nil), nil
	}
	return pipeline.NewRegistry(ctx, factory, logger.Discard())
}

func writeVideo(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("not really a video"), 0644))
}
