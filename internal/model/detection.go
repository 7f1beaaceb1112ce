package model

// PersonClassID is the COCO class index for "person".
const PersonClassID = 0

// Detection is a single detector hit on one frame.
type Detection struct {
	Box        Box     `json:"box"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
}

// Centroid is the position fed to the tracker.
func (d Detection) Centroid() Point {
	return d.Box.Centroid()
}

// Area is the pixel area counted towards occupancy.
func (d Detection) Area() int {
	return d.Box.Area()
}

// Track is a tracker-owned identity with its estimated position on the current frame.
type Track struct {
	ID       int   `json:"id"`
	Position Point `json:"position"`
}
