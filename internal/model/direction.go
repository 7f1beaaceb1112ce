package model

// Direction is the cardinal movement direction of a track between two frames.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// Directions lists every direction in the fixed order used to break tally ties.
var Directions = [4]Direction{DirectionLeft, DirectionRight, DirectionUp, DirectionDown}
