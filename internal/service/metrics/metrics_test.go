package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdwatch/internal/model"
)

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameRead()
		m.FrameDropped()
		m.ReadError()
		m.FrameProcessed(time.Millisecond)
		m.ProcessError()
		m.FrameEncoded()
		m.StreamOpened()()
		m.PartWritten()
		m.PipelineStarted()()
		m.WebSocketConnected(1)
		m.ObserveSnapshot(model.Snapshot{PeopleCount: 3})
	})
}

func TestMetrics_StreamGauges(t *testing.T) {
	m := New()
	done1 := m.StreamOpened()
	done2 := m.StreamOpened()
	assert.Equal(t, int64(2), m.ActiveStreams.Load())

	done1()
	assert.Equal(t, int64(1), m.ActiveStreams.Load())
	assert.Equal(t, uint64(2), m.TotalStreams.Load())
	done2()
	assert.Equal(t, int64(0), m.ActiveStreams.Load())
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := New()
	m.FrameRead()
	m.FrameRead()
	m.FrameProcessed(42 * time.Millisecond)
	m.ObserveSnapshot(model.Snapshot{PeopleCount: 4, TrackedCount: 3, OccupancyRatio: 12.5})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "crowdwatch_frames_read_total 2")
	assert.Contains(t, out, "crowdwatch_frames_processed_total 1")
	assert.Contains(t, out, "crowdwatch_process_latency_ms 42")
	assert.Contains(t, out, "crowdwatch_people 4")
	assert.Contains(t, out, "crowdwatch_tracked_people 3")
	assert.Contains(t, out, "crowdwatch_occupancy_ratio_percent 12.5")
}
