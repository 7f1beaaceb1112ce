package analytics

import (
	"sync/atomic"

	"crowdwatch/internal/model"
)

// OccupancyRatio returns totalArea as a percentage of frameArea.
// Overlapping boxes are counted twice; the ratio can therefore exceed 100.
func OccupancyRatio(totalArea, frameArea int) float64 {
	if frameArea <= 0 {
		return 0
	}
	return float64(totalArea) / float64(frameArea) * 100
}

// ClassifyOccupancy maps a ratio onto a congestion band.
func ClassifyOccupancy(ratio float64, t model.Thresholds) model.Band {
	switch {
	case ratio < t.Low:
		return model.BandLight
	case ratio < t.High:
		return model.BandModerate
	default:
		return model.BandHeavy
	}
}

// Occupancy sums person areas for one frame and classifies the result.
func Occupancy(width, height int, detections []model.Detection, t model.Thresholds) (float64, model.Band) {
	total := 0
	for _, d := range detections {
		total += d.Area()
	}
	ratio := OccupancyRatio(total, width*height)
	return ratio, ClassifyOccupancy(ratio, t)
}

// ThresholdCell holds the active thresholds. Every pipeline reads it once per frame and the
// admin path replaces it wholesale, so readers never see a half-updated pair.
type ThresholdCell struct {
	v atomic.Pointer[model.Thresholds]
}

// NewThresholdCell validates t and returns a cell holding it.
func NewThresholdCell(t model.Thresholds) (*ThresholdCell, error) {
	c := &ThresholdCell{}
	if err := c.Store(t); err != nil {
		return nil, err
	}
	return c, nil
}

// Load returns the current thresholds.
func (c *ThresholdCell) Load() model.Thresholds {
	return *c.v.Load()
}

// Store replaces the thresholds after validation.
func (c *ThresholdCell) Store(t model.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.v.Store(&t)
	return nil
}
