package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/pipeline"
	"crowdwatch/internal/service/vision"
	"crowdwatch/internal/service/yolo"
)

type foreignFrame struct{}

func (foreignFrame) Size() (int, int) { return 1, 1 }
func (foreignFrame) Close() error     { return nil }

func TestRenderer_EncodesEveryView(t *testing.T) {
	frame := &vision.Frame{Mat: gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)}
	defer frame.Close()

	overlay := pipeline.Overlay{
		Detections: []model.Detection{{Box: model.Box{X1: 10, Y1: 10, X2: 50, Y2: 100}}},
		Tracks:     []model.Track{{ID: 3, Position: model.Point{X: 30, Y: 55}}},
		Snapshot: model.Snapshot{
			PeopleCount:    1,
			Band:           model.BandHeavy,
			OccupancyRatio: 18.75,
			CountMessage:   "People: 1\nMost movement: left (0)",
			RatioMessage:   "Person Area Ratio: heavy",
		},
	}

	r := NewRendererService(80, logger.Discard())
	for _, view := range pipeline.Views {
		jpeg, err := r.Render(frame, view, overlay)
		require.NoError(t, err, "view %s", view)
		require.Greater(t, len(jpeg), 2)
		assert.Equal(t, []byte{0xFF, 0xD8}, jpeg[:2], "view %s is not a JPEG", view)
	}

	// annotations go to a copy; the source frame keeps its size for the next view
	assert.Equal(t, 160, frame.Mat.Cols())
}

func TestRenderer_RejectsForeignFrames(t *testing.T) {
	r := NewRendererService(80, logger.Discard())
	_, err := r.Render(foreignFrame{}, pipeline.ViewRaw, pipeline.Overlay{})
	assert.Error(t, err)
}

func TestRenderer_UnknownView(t *testing.T) {
	frame := &vision.Frame{Mat: gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)}
	defer frame.Close()

	r := NewRendererService(80, logger.Discard())
	_, err := r.Render(frame, pipeline.View("thermal"), pipeline.Overlay{})
	assert.Error(t, err)
}

func TestDetector_RejectsForeignFrames(t *testing.T) {
	d := &DetectorService{logger: logger.Discard()}
	_, err := d.Detect(foreignFrame{})
	assert.Error(t, err)
}

func TestDetector_RefusesAfterClose(t *testing.T) {
	frame := &vision.Frame{Mat: gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)}
	defer frame.Close()

	d := &DetectorService{closed: true, options: yolo.Options{InputSize: 32}, logger: logger.Discard()}
	_, err := d.Detect(frame)
	assert.ErrorIs(t, err, ErrDetectorClosed)
	assert.NoError(t, d.Close(), "second close is a no-op")
}
