package sensor

import (
	"context"
	"errors"

	"github.com/sweeney/dogwatch/internal/detect"
)

// FakeSource returns scripted samples for testing. Once the script is
// exhausted the final sample repeats, so a test can run more cycles than
// it scripted.
type FakeSource struct {
	// Samples are returned in order by successive Acquire calls.
	Samples []Sample

	// AcquireError, if set, is returned by every Acquire.
	AcquireError error

	// Closed tracks whether Close was called.
	Closed bool

	index int
}

// NewFakeSource creates a FakeSource over the given samples.
func NewFakeSource(samples ...Sample) *FakeSource {
	return &FakeSource{Samples: samples}
}

// DogSample builds a sample containing one dog detection, for tests.
func DogSample(score float64) Sample {
	return Sample{
		Detections: []detect.Detection{
			{Label: "dog", Score: score, Box: detect.Rect{X1: 0.25, Y1: 0.25, X2: 0.75, Y2: 0.75}},
		},
		JPEG:   []byte("fake-jpeg"),
		Width:  640,
		Height: 480,
	}
}

// HumanSample builds a sample containing one person detection, for tests.
func HumanSample(score float64) Sample {
	return Sample{
		Detections: []detect.Detection{
			{Label: "person", Score: score, Box: detect.Rect{X1: 0.1, Y1: 0.1, X2: 0.5, Y2: 0.9}},
		},
		JPEG:   []byte("fake-jpeg"),
		Width:  640,
		Height: 480,
	}
}

// Acquire returns the next scripted sample.
func (f *FakeSource) Acquire(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if f.AcquireError != nil {
		return Sample{}, f.AcquireError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("fake source has no samples")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
