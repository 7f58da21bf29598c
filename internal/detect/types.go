// Package detect contains pure detection logic for the dog monitor.
// This package has NO external dependencies (no camera, HTTP, OS, or
// time.Sleep). Time is always injectable via time.Time parameters.
package detect

import "time"

// Rect is a bounding box in normalized frame coordinates. All values are
// fractions of the frame size in [0, 1], with (X1, Y1) the top-left corner
// and (X2, Y2) the bottom-right corner.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// FullFrame is the region that matches every detection.
var FullFrame = Rect{X1: 0, Y1: 0, X2: 1, Y2: 1}

// Area returns the area of the rectangle. Degenerate rectangles (inverted
// or zero-size) have area 0.
func (r Rect) Area() float64 {
	w := r.X2 - r.X1
	h := r.Y2 - r.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// OverlapFraction returns the fraction of r's area that lies inside roi.
// A degenerate r has overlap 0.
func (r Rect) OverlapFraction(roi Rect) float64 {
	area := r.Area()
	if area == 0 {
		return 0
	}
	iw := min(r.X2, roi.X2) - max(r.X1, roi.X1)
	ih := min(r.Y2, roi.Y2) - max(r.Y1, roi.Y1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	return iw * ih / area
}

// Detection is a single classified object from one inference pass.
type Detection struct {
	Label string
	Score float64
	Box   Rect
}

// Event summarizes one frame's detections after thresholds and the region
// filter have been applied.
type Event struct {
	Time time.Time
	// DogCount is the number of qualifying dog detections.
	DogCount int
	// MaxDogConfidence is the highest score among qualifying dogs.
	// Zero when DogCount is zero.
	MaxDogConfidence float64
	// HumanPresent reports a qualifying human detection anywhere in frame.
	HumanPresent bool
}

// Kind identifies the outcome of gating an event.
type Kind string

const (
	KindIdle         Kind = "IDLE"
	KindDogOnly      Kind = "DOG_ONLY"
	KindHumanPresent Kind = "HUMAN_PRESENT"
)

// Decision is the gate verdict for one cycle. Exactly one Kind applies.
// DogCount and Confidence carry the evidence details and are meaningful
// only for KindDogOnly.
type Decision struct {
	Kind       Kind
	DogCount   int
	Confidence float64
}
