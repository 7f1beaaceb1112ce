package dto

import "time"

// VideoInfo describes a playable file in the video directory.
type VideoInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
	StreamURL   string    `json:"stream_url"`
	SnapshotURL string    `json:"snapshot_url"`
	Active      bool      `json:"active"`
}

// VideoList is the response of the video listing endpoint.
type VideoList struct {
	Videos []VideoInfo `json:"videos"`
	Count  int         `json:"count"`
}
