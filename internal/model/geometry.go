package model

import "image"

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is an axis-aligned bounding box in pixel coordinates, (X1,Y1) top-left and (X2,Y2) bottom-right.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Centroid returns the integer center of the box.
func (b Box) Centroid() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

// Rect converts the box to an image.Rectangle for drawing.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}
