// Package metrics exposes pipeline and streaming counters in Prometheus format.
package metrics

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crowdwatch/internal/model"
)

// Metrics holds process-wide counters. All methods are safe on a nil receiver so components
// can run without instrumentation in tests.
type Metrics struct {
	// Capture
	FramesRead    atomic.Uint64
	FramesDropped atomic.Uint64
	ReadErrors    atomic.Uint64

	// Pipeline
	FramesProcessed  atomic.Uint64
	ProcessErrors    atomic.Uint64
	ProcessLatencyMs atomic.Uint64
	FramesEncoded    atomic.Uint64

	// Streaming
	ActiveStreams   atomic.Int64
	TotalStreams    atomic.Uint64
	PartsWritten    atomic.Uint64
	ActivePipelines atomic.Int64

	// Latest camera snapshot
	PeopleCount    atomic.Int64
	TrackedCount   atomic.Int64
	OccupancyRatio atomic.Uint64 // math.Float64bits

	// Snapshot push
	WebSocketClients atomic.Int64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	counter := func(name, help string, v *atomic.Uint64) {
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(v.Load()) },
		))
	}
	gauge := func(name, help string, fn func() float64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			fn,
		))
	}

	counter("crowdwatch_frames_read_total", "Frames read from capture devices and files", &m.FramesRead)
	counter("crowdwatch_frames_dropped_total", "Frames replaced before the pipeline consumed them", &m.FramesDropped)
	counter("crowdwatch_read_errors_total", "Capture reads that ended a source", &m.ReadErrors)
	counter("crowdwatch_frames_processed_total", "Frames run through detection and analytics", &m.FramesProcessed)
	counter("crowdwatch_process_errors_total", "Pipeline failures", &m.ProcessErrors)
	counter("crowdwatch_frames_encoded_total", "View frames encoded to JPEG", &m.FramesEncoded)
	counter("crowdwatch_stream_clients_total", "MJPEG clients ever connected", &m.TotalStreams)
	counter("crowdwatch_stream_parts_total", "Multipart JPEG parts written to clients", &m.PartsWritten)

	gauge("crowdwatch_process_latency_ms", "Latency of the last processed frame",
		func() float64 { return float64(m.ProcessLatencyMs.Load()) })
	gauge("crowdwatch_stream_clients", "MJPEG clients currently connected",
		func() float64 { return float64(m.ActiveStreams.Load()) })
	gauge("crowdwatch_pipelines", "Pipelines currently running",
		func() float64 { return float64(m.ActivePipelines.Load()) })
	gauge("crowdwatch_people", "People detected on the last camera frame",
		func() float64 { return float64(m.PeopleCount.Load()) })
	gauge("crowdwatch_tracked_people", "Tracked identities on the last camera frame",
		func() float64 { return float64(m.TrackedCount.Load()) })
	gauge("crowdwatch_occupancy_ratio_percent", "Person area as a percentage of the last camera frame",
		func() float64 { return math.Float64frombits(m.OccupancyRatio.Load()) })
	gauge("crowdwatch_websocket_clients", "Snapshot WebSocket clients currently connected",
		func() float64 { return float64(m.WebSocketClients.Load()) })
}

// FrameRead counts a frame handed off by a pump.
func (m *Metrics) FrameRead() {
	if m == nil {
		return
	}
	m.FramesRead.Add(1)
}

// FrameDropped counts a frame replaced in the mailbox before being consumed.
func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Add(1)
}

// ReadError counts a fatal capture failure.
func (m *Metrics) ReadError() {
	if m == nil {
		return
	}
	m.ReadErrors.Add(1)
}

// FrameProcessed records a processed frame and how long it took.
func (m *Metrics) FrameProcessed(d time.Duration) {
	if m == nil {
		return
	}
	m.FramesProcessed.Add(1)
	m.ProcessLatencyMs.Store(uint64(d.Milliseconds()))
}

// ProcessError counts a pipeline failure.
func (m *Metrics) ProcessError() {
	if m == nil {
		return
	}
	m.ProcessErrors.Add(1)
}

// FrameEncoded counts one encoded view frame.
func (m *Metrics) FrameEncoded() {
	if m == nil {
		return
	}
	m.FramesEncoded.Add(1)
}

// StreamOpened records a new MJPEG client and returns the function that records its departure.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.ActiveStreams.Add(1)
	m.TotalStreams.Add(1)
	return func() { m.ActiveStreams.Add(-1) }
}

// PartWritten counts one multipart part delivered to a client.
func (m *Metrics) PartWritten() {
	if m == nil {
		return
	}
	m.PartsWritten.Add(1)
}

// PipelineStarted records a running pipeline and returns the function that records its end.
func (m *Metrics) PipelineStarted() func() {
	if m == nil {
		return func() {}
	}
	m.ActivePipelines.Add(1)
	return func() { m.ActivePipelines.Add(-1) }
}

// WebSocketConnected adjusts the snapshot push client gauge by delta.
func (m *Metrics) WebSocketConnected(delta int64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(delta)
}

// ObserveSnapshot mirrors the camera snapshot into gauges.
func (m *Metrics) ObserveSnapshot(s model.Snapshot) {
	if m == nil {
		return
	}
	m.PeopleCount.Store(int64(s.PeopleCount))
	m.TrackedCount.Store(int64(s.TrackedCount))
	m.OccupancyRatio.Store(math.Float64bits(s.OccupancyRatio))
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
