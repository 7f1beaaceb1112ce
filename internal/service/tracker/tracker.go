// Package tracker assigns stable identities to per-frame points.
//
// Every detection starts as a candidate with one hit. Each call to Update costs every object a
// hit; a match gives back two, up to HitCounterMax. A candidate becomes a reported track with the
// next identity once its hit counter exceeds InitializationDelay, and any object whose counter
// drops below zero is forgotten. Missed tracks keep moving with their last observed velocity.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"crowdwatch/internal/model"
)

// Config controls matching and the hit-counter lifecycle.
type Config struct {
	DistanceFunction  string
	DistanceThreshold float64
	HitCounterMax     int
	// InitializationDelay below zero selects HitCounterMax/2.
	InitializationDelay int
}

// DefaultConfig matches the values the service ships with.
func DefaultConfig() Config {
	return Config{
		DistanceFunction:    Euclidean,
		DistanceThreshold:   120,
		HitCounterMax:       15,
		InitializationDelay: -1,
	}
}

type object struct {
	id       int // 0 while initializing
	hits     int
	measured [2]float64
	velocity [2]float64
	age      int // frames since last match
}

func (o *object) estimate() [2]float64 {
	return [2]float64{
		o.measured[0] + o.velocity[0]*float64(o.age),
		o.measured[1] + o.velocity[1]*float64(o.age),
	}
}

// Tracker is not safe for concurrent use; each pipeline owns one.
type Tracker struct {
	distance  DistanceFunc
	threshold float64
	hitMax    int
	delay     int

	objects []*object
	nextID  int
}

// New validates cfg and returns an empty tracker.
func New(cfg Config) (*Tracker, error) {
	distance, err := DistanceByName(cfg.DistanceFunction)
	if err != nil {
		return nil, err
	}
	if !(cfg.DistanceThreshold > 0) || math.IsInf(cfg.DistanceThreshold, 1) {
		return nil, fmt.Errorf("distance threshold must be positive and finite, got %v", cfg.DistanceThreshold)
	}
	if cfg.HitCounterMax <= 0 {
		return nil, errors.New("hit counter max must be positive")
	}
	delay := cfg.InitializationDelay
	if delay < 0 {
		delay = cfg.HitCounterMax / 2
	}
	if delay >= cfg.HitCounterMax {
		return nil, fmt.Errorf("initialization delay %d must be below hit counter max %d", delay, cfg.HitCounterMax)
	}

	return &Tracker{
		distance:  distance,
		threshold: cfg.DistanceThreshold,
		hitMax:    cfg.HitCounterMax,
		delay:     delay,
		nextID:    1,
	}, nil
}

// Update advances the tracker by one frame and returns the reported tracks ordered by ID.
// It must be called for frames without points too.
func (t *Tracker) Update(points []model.Point) []model.Track {
	alive := t.objects[:0]
	for _, o := range t.objects {
		if o.hits >= 0 {
			alive = append(alive, o)
		}
	}
	t.objects = alive

	for _, o := range t.objects {
		o.hits--
		o.age++
	}

	unmatched := make([]bool, len(points))
	for i := range unmatched {
		unmatched[i] = true
	}

	var initialized, initializing []*object
	for _, o := range t.objects {
		if o.id != 0 {
			initialized = append(initialized, o)
		} else {
			initializing = append(initializing, o)
		}
	}
	t.match(initialized, points, unmatched)
	t.match(initializing, points, unmatched)

	for i, p := range points {
		if !unmatched[i] {
			continue
		}
		o := &object{hits: 1, measured: vec(p)}
		t.promote(o)
		t.objects = append(t.objects, o)
	}

	var tracks []model.Track
	for _, o := range t.objects {
		if o.id != 0 && o.hits >= 0 {
			tracks = append(tracks, model.Track{ID: o.id, Position: point(o.estimate())})
		}
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })
	return tracks
}

type candidate struct {
	obj, det int
	dist     float64
}

// match pairs objects with still-unmatched points greedily by ascending distance.
func (t *Tracker) match(objects []*object, points []model.Point, unmatched []bool) {
	if len(objects) == 0 {
		return
	}

	var candidates []candidate
	for oi, o := range objects {
		est := o.estimate()
		for di, p := range points {
			if !unmatched[di] {
				continue
			}
			if d := t.distance(vec(p), est); d < t.threshold {
				candidates = append(candidates, candidate{obj: oi, det: di, dist: d})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	used := make([]bool, len(objects))
	for _, c := range candidates {
		if used[c.obj] || !unmatched[c.det] {
			continue
		}
		used[c.obj] = true
		unmatched[c.det] = false
		t.hit(objects[c.obj], vec(points[c.det]))
	}
}

func (t *Tracker) hit(o *object, detection [2]float64) {
	age := float64(o.age)
	o.velocity = [2]float64{
		(detection[0] - o.measured[0]) / age,
		(detection[1] - o.measured[1]) / age,
	}
	o.measured = detection
	o.age = 0
	o.hits = min(o.hits+2, t.hitMax)
	t.promote(o)
}

func (t *Tracker) promote(o *object) {
	if o.id == 0 && o.hits > t.delay {
		o.id = t.nextID
		t.nextID++
	}
}

// Len returns the number of live objects, candidates included.
func (t *Tracker) Len() int {
	return len(t.objects)
}
