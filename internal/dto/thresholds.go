package dto

import "time"

// ThresholdsRequest updates one or both occupancy thresholds. Omitted fields keep their value.
type ThresholdsRequest struct {
	Low  *float64 `json:"low_threshold"`
	High *float64 `json:"high_threshold"`
}

// ThresholdsResponse reports the active occupancy thresholds.
type ThresholdsResponse struct {
	Low       float64    `json:"low_threshold"`
	High      float64    `json:"high_threshold"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
