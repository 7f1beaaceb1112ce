// Package yolo turns raw YOLOv8 output tensors into person detections.
package yolo

import (
	"fmt"
	"math"
	"sort"

	"crowdwatch/internal/model"
)

// Options controls decoding.
type Options struct {
	InputSize  int     // square network input edge in pixels
	Confidence float64 // minimum class score, exclusive
	IoU        float64 // overlap above which the weaker box is suppressed
	ClassID    int     // class to keep
}

// DefaultOptions are the settings of the bundled YOLOv8n export.
func DefaultOptions() Options {
	return Options{
		InputSize:  640,
		Confidence: 0.5,
		IoU:        0.45,
		ClassID:    model.PersonClassID,
	}
}

type candidate struct {
	cx, cy, w, h float64
	score        float64
}

// Decode reads a [1, 4+C, N] or [1, N, 4+C] tensor, keeps boxes whose best class is
// opts.ClassID above opts.Confidence, scales them to a frameW x frameH frame and applies NMS.
func Decode(data []float32, dims []int, frameW, frameH int, opts Options) ([]model.Detection, error) {
	if len(dims) != 3 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	if dims[1]*dims[2] != len(data) {
		return nil, fmt.Errorf("output shape %v does not match %d values", dims, len(data))
	}
	if opts.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", opts.InputSize)
	}

	// Attributes are the short axis: 84 against 8400 anchors.
	attrs, anchors := dims[1], dims[2]
	at := func(attr, anchor int) float64 { return float64(data[attr*anchors+anchor]) }
	if dims[1] > dims[2] {
		attrs, anchors = dims[2], dims[1]
		at = func(attr, anchor int) float64 { return float64(data[anchor*attrs+attr]) }
	}
	classes := attrs - 4
	if classes <= 0 || opts.ClassID < 0 || opts.ClassID >= classes {
		return nil, fmt.Errorf("output shape %v has no class %d", dims, opts.ClassID)
	}

	scaleX := float64(frameW) / float64(opts.InputSize)
	scaleY := float64(frameH) / float64(opts.InputSize)

	var candidates []candidate
	for i := 0; i < anchors; i++ {
		best, bestScore := 0, at(4, i)
		for c := 1; c < classes; c++ {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best != opts.ClassID || bestScore <= opts.Confidence {
			continue
		}
		candidates = append(candidates, candidate{
			cx:    at(0, i) * scaleX,
			cy:    at(1, i) * scaleY,
			w:     at(2, i) * scaleX,
			h:     at(3, i) * scaleY,
			score: bestScore,
		})
	}

	kept := suppress(candidates, opts.IoU)
	detections := make([]model.Detection, 0, len(kept))
	for _, c := range kept {
		detections = append(detections, model.Detection{
			Box:        toBox(c, frameW, frameH),
			ClassID:    opts.ClassID,
			Confidence: c.score,
		})
	}
	return detections, nil
}

// suppress keeps the highest-scoring boxes, dropping any box that overlaps an already kept box
// by more than threshold.
func suppress(candidates []candidate, threshold float64) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var kept []candidate
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if iou(c, k) > threshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	ax1, ay1, ax2, ay2 := a.cx-a.w/2, a.cy-a.h/2, a.cx+a.w/2, a.cy+a.h/2
	bx1, by1, bx2, by2 := b.cx-b.w/2, b.cy-b.h/2, b.cx+b.w/2, b.cy+b.h/2

	iw := math.Max(0, math.Min(ax2, bx2)-math.Max(ax1, bx1))
	ih := math.Max(0, math.Min(ay2, by2)-math.Max(ay1, by1))
	inter := iw * ih
	union := a.w*a.h + b.w*b.h - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func toBox(c candidate, frameW, frameH int) model.Box {
	clamp := func(v float64, limit int) int {
		return min(max(int(math.Round(v)), 0), limit)
	}
	return model.Box{
		X1: clamp(c.cx-c.w/2, frameW),
		Y1: clamp(c.cy-c.h/2, frameH),
		X2: clamp(c.cx+c.w/2, frameW),
		Y2: clamp(c.cy+c.h/2, frameH),
	}
}
