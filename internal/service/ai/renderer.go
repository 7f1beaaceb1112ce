package ai

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/capture"
	"crowdwatch/internal/service/pipeline"
	"crowdwatch/internal/service/vision"
)

var (
	green = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// RendererService draws pipeline overlays and encodes frames as JPEG.
type RendererService struct {
	quality int
	logger  *logger.Logger
}

// NewRendererService creates a renderer encoding at the given JPEG quality.
func NewRendererService(quality int, logger *logger.Logger) *RendererService {
	return &RendererService{quality: quality, logger: logger}
}

// Render annotates a copy of frame for view and returns the encoded JPEG.
func (s *RendererService) Render(frame capture.Frame, view pipeline.View, overlay pipeline.Overlay) ([]byte, error) {
	f, ok := frame.(*vision.Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}

	if view == pipeline.ViewRaw {
		return s.encode(f.Mat)
	}

	mat := f.Mat.Clone()
	defer mat.Close()

	for _, d := range overlay.Detections {
		if err := gocv.Rectangle(&mat, d.Box.Rect(), green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}
	}

	var lines []string
	switch view {
	case pipeline.ViewTracking:
		for _, tr := range overlay.Tracks {
			center := image.Pt(tr.Position.X, tr.Position.Y)
			gocv.Circle(&mat, center, 5, green, -1)
			label := fmt.Sprintf("ID: %d", tr.ID)
			if err := gocv.PutText(&mat, label, image.Pt(center.X+5, center.Y-5), gocv.FontHersheySimplex, 0.5, green, 2); err != nil {
				return nil, fmt.Errorf("failed to draw text: %w", err)
			}
		}
		lines = strings.Split(overlay.Snapshot.CountMessage, "\n")
	case pipeline.ViewArea:
		lines = []string{
			fmt.Sprintf("Area ratio: %.1f%%", overlay.Snapshot.OccupancyRatio),
			overlay.Snapshot.RatioMessage,
		}
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}

	textColor := white
	if overlay.Snapshot.Band == model.BandHeavy {
		textColor = red
	}
	for i, line := range lines {
		pt := image.Pt(10, 30+i*30)
		if err := gocv.PutText(&mat, line, pt, gocv.FontHersheySimplex, 0.8, textColor, 2); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	return s.encode(mat)
}

func (s *RendererService) encode(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), s.quality})
	if err != nil {
		s.logger.Error("Failed to encode image: %v", err)
		return nil, err
	}
	defer buf.Close()

	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())
	return finalImage, nil
}
