package detect

import "time"

// Config holds the analyzer thresholds and the region filter.
type Config struct {
	// DogLabel and HumanLabel are the class names to match, as emitted by
	// the inference source.
	DogLabel   string
	HumanLabel string

	// DogThreshold and HumanThreshold are minimum confidence scores.
	// Comparisons are inclusive: a score exactly at the threshold counts.
	DogThreshold   float64
	HumanThreshold float64

	// ROI restricts which dog detections count. A dog qualifies when at
	// least ROIOverlap of its box area lies inside ROI. The filter never
	// applies to humans: a person anywhere in frame engages privacy.
	ROI        Rect
	ROIOverlap float64
}

// DefaultConfig returns the stock couch-watching configuration.
func DefaultConfig() Config {
	return Config{
		DogLabel:       "dog",
		HumanLabel:     "person",
		DogThreshold:   0.50,
		HumanThreshold: 0.30,
		ROI:            FullFrame,
		ROIOverlap:     0.5,
	}
}

// Analyzer turns raw inference output into detection events.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer with the given configuration.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze applies thresholds and the region filter to one frame's
// detections. Unknown labels are ignored. A nil or empty list yields an
// idle event.
func (a *Analyzer) Analyze(ts time.Time, detections []Detection) Event {
	ev := Event{Time: ts}
	for _, d := range detections {
		switch d.Label {
		case a.cfg.HumanLabel:
			if d.Score >= a.cfg.HumanThreshold {
				ev.HumanPresent = true
			}
		case a.cfg.DogLabel:
			if d.Score < a.cfg.DogThreshold {
				continue
			}
			// Zero-area boxes are sensor noise, never a dog.
			if d.Box.Area() == 0 {
				continue
			}
			if d.Box.OverlapFraction(a.cfg.ROI) < a.cfg.ROIOverlap {
				continue
			}
			ev.DogCount++
			if d.Score > ev.MaxDogConfidence {
				ev.MaxDogConfidence = d.Score
			}
		}
	}
	return ev
}
