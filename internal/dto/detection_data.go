package dto

import "crowdwatch/internal/model"

// DetectionData is the compact poller view of a snapshot.
type DetectionData struct {
	RatioCode             string `json:"ratio_code"`
	PeopleCount           int    `json:"people_count"`
	MostMovementDirection string `json:"most_movement_direction"`
	MostMovementCount     int    `json:"most_movement_count"`
}

// NewDetectionData projects a snapshot onto the poller fields.
func NewDetectionData(s model.Snapshot) DetectionData {
	return DetectionData{
		RatioCode:             s.RatioCode,
		PeopleCount:           s.PeopleCount,
		MostMovementDirection: string(s.DominantDirection),
		MostMovementCount:     s.DominantCount,
	}
}
