package analytics

import "crowdwatch/internal/model"

// ClassifyDirection returns the dominant axis of movement from prev to curr.
// When |dx| == |dy| the vertical branch wins, so a stationary track reports "down".
func ClassifyDirection(prev, curr model.Point) model.Direction {
	dx := curr.X - prev.X
	dy := curr.Y - prev.Y

	if abs(dx) > abs(dy) {
		if dx > 0 {
			return model.DirectionRight
		}
		return model.DirectionLeft
	}
	if dy > 0 {
		return model.DirectionDown
	}
	return model.DirectionUp
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
