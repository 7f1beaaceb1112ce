package dto

import "crowdwatch/internal/model"

// SnapshotMessage is pushed to WebSocket viewers on every published camera snapshot.
type SnapshotMessage struct {
	Type     string         `json:"type"`
	Snapshot model.Snapshot `json:"snapshot"`
}
