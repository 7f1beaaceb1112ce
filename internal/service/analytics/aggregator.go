package analytics

import (
	"sync"
	"time"

	"crowdwatch/internal/model"
)

// Tracker is the identity correspondence engine. It must be called once per frame, including
// frames without detections, so that stale identities expire.
type Tracker interface {
	Update(points []model.Point) []model.Track
}

// Aggregator turns per-frame detections into a published Snapshot. It owns the tracker and the
// previous-position table; nothing outside the aggregator can read or write either.
type Aggregator struct {
	tracker    Tracker
	store      *Store
	thresholds *ThresholdCell
	now        func() time.Time

	mu       sync.Mutex
	previous map[int]model.Point
}

// NewAggregator wires a tracker, the store it publishes to and the shared thresholds.
func NewAggregator(tracker Tracker, store *Store, thresholds *ThresholdCell) *Aggregator {
	return &Aggregator{
		tracker:    tracker,
		store:      store,
		thresholds: thresholds,
		now:        time.Now,
		previous:   make(map[int]model.Point),
	}
}

// Store returns the snapshot store this aggregator publishes to.
func (a *Aggregator) Store() *Store {
	return a.store
}

// Process runs tracking, direction and occupancy classification for one frame, publishes the
// resulting snapshot and returns it together with the tracks used for annotation.
func (a *Aggregator) Process(seq uint64, width, height int, detections []model.Detection) (model.Snapshot, []model.Track) {
	a.mu.Lock()
	defer a.mu.Unlock()

	points := make([]model.Point, 0, len(detections))
	for _, d := range detections {
		points = append(points, d.Centroid())
	}
	tracks := a.tracker.Update(points)

	var tally Tally
	seen := make(map[int]struct{}, len(tracks))
	for _, tr := range tracks {
		seen[tr.ID] = struct{}{}
		if prev, ok := a.previous[tr.ID]; ok {
			tally.Add(ClassifyDirection(prev, tr.Position))
		}
		a.previous[tr.ID] = tr.Position
	}
	for id := range a.previous {
		if _, ok := seen[id]; !ok {
			delete(a.previous, id)
		}
	}

	direction, count := tally.Dominant()
	ratio, band := Occupancy(width, height, detections, a.thresholds.Load())

	snap := model.Snapshot{
		PeopleCount:       len(detections),
		TrackedCount:      len(tracks),
		DominantDirection: direction,
		DominantCount:     count,
		Band:              band,
		OccupancyRatio:    ratio,
		RatioCode:         band.Code(),
		CountMessage:      CountMessage(len(detections), direction, count),
		RatioMessage:      RatioMessage(band),
		FrameSeq:          seq,
		UpdatedAt:         a.now(),
	}
	a.store.Publish(snap)
	return snap, tracks
}

// PreviousPositions returns a copy of the previous-position table.
func (a *Aggregator) PreviousPositions() map[int]model.Point {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[int]model.Point, len(a.previous))
	for id, p := range a.previous {
		out[id] = p
	}
	return out
}
