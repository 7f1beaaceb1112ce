package tracker

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"crowdwatch/internal/model"
)

// DistanceFunc measures the cost of pairing a detection with a track estimate.
type DistanceFunc func(detection, estimate [2]float64) float64

// Supported distance function names.
const (
	Euclidean = "euclidean"
	Manhattan = "manhattan"
	Chebyshev = "chebyshev"
)

// DistanceByName resolves a configured distance function name to its norm.
func DistanceByName(name string) (DistanceFunc, error) {
	var l float64
	switch name {
	case Euclidean:
		l = 2
	case Manhattan:
		l = 1
	case Chebyshev:
		l = math.Inf(1)
	default:
		return nil, fmt.Errorf("unknown distance function %q", name)
	}
	return func(detection, estimate [2]float64) float64 {
		return floats.Distance(detection[:], estimate[:], l)
	}, nil
}

func vec(p model.Point) [2]float64 {
	return [2]float64{float64(p.X), float64(p.Y)}
}

func point(v [2]float64) model.Point {
	return model.Point{X: int(math.Round(v[0])), Y: int(math.Round(v[1]))}
}
