package model

import (
	"errors"
	"fmt"
)

// Band is the congestion level derived from the occupancy ratio.
type Band string

const (
	BandLight    Band = "light"
	BandModerate Band = "moderate"
	BandHeavy    Band = "heavy"
)

// Code returns the compact occupancy code exposed to pollers ("1".."3"), or "" for an unset band.
func (b Band) Code() string {
	switch b {
	case BandLight:
		return "1"
	case BandModerate:
		return "2"
	case BandHeavy:
		return "3"
	}
	return ""
}

// ErrInvalidThresholds is returned when occupancy thresholds are out of range or out of order.
var ErrInvalidThresholds = errors.New("invalid occupancy thresholds")

// Thresholds are the two occupancy percentages separating light/moderate and moderate/heavy.
type Thresholds struct {
	Low  float64 `json:"low_threshold"`
	High float64 `json:"high_threshold"`
}

// Validate checks 0 <= Low <= High <= 100. NaN fails every comparison and is rejected.
func (t Thresholds) Validate() error {
	if !(t.Low >= 0 && t.High <= 100) {
		return fmt.Errorf("%w: low=%.2f high=%.2f must be within [0,100]", ErrInvalidThresholds, t.Low, t.High)
	}
	if !(t.Low <= t.High) {
		return fmt.Errorf("%w: low=%.2f is greater than high=%.2f", ErrInvalidThresholds, t.Low, t.High)
	}
	return nil
}
