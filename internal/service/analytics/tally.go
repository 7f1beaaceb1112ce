package analytics

import "crowdwatch/internal/model"

// Tally counts directions for a single frame.
type Tally struct {
	counts [len(model.Directions)]int
}

// Add records one observation of d.
func (t *Tally) Add(d model.Direction) {
	for i, dir := range model.Directions {
		if dir == d {
			t.counts[i]++
			return
		}
	}
}

// Count returns the number of observations of d.
func (t *Tally) Count(d model.Direction) int {
	for i, dir := range model.Directions {
		if dir == d {
			return t.counts[i]
		}
	}
	return 0
}

// Dominant returns the direction with the highest count. Ties resolve to the earliest entry of
// model.Directions, so an empty tally yields (left, 0).
func (t *Tally) Dominant() (model.Direction, int) {
	best := 0
	for i := 1; i < len(t.counts); i++ {
		if t.counts[i] > t.counts[best] {
			best = i
		}
	}
	return model.Directions[best], t.counts[best]
}
