package analytics

import (
	"fmt"

	"crowdwatch/internal/model"
)

// CountMessage is the human-readable people/direction summary.
func CountMessage(people int, direction model.Direction, count int) string {
	return fmt.Sprintf("People: %d\nMost movement: %s (%d)", people, direction, count)
}

// RatioMessage is the human-readable congestion summary.
func RatioMessage(band model.Band) string {
	return fmt.Sprintf("Person Area Ratio: %s", band)
}
