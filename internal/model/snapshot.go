package model

import "time"

// Snapshot is the aggregate result of one processed frame. It is never mutated after publication.
type Snapshot struct {
	PeopleCount       int       `json:"people_count"`
	TrackedCount      int       `json:"tracked_count"`
	DominantDirection Direction `json:"most_movement_direction"`
	DominantCount     int       `json:"most_movement_count"`
	Band              Band      `json:"band"`
	OccupancyRatio    float64   `json:"occupancy_ratio"`
	RatioCode         string    `json:"ratio_code"`
	CountMessage      string    `json:"count_message"`
	RatioMessage      string    `json:"ratio_message"`
	FrameSeq          uint64    `json:"frame_seq"`
	UpdatedAt         time.Time `json:"updated_at"`
}
