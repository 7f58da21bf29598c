// Package sensor provides detection sample acquisition with hardware
// abstraction. The production sources wrap the IMX500 AI camera (via a
// picamera2 helper process) or a V4L2 camera with OpenCV inference; the
// fake allows testing without hardware.
package sensor

import (
	"context"
	"time"

	"github.com/sweeney/dogwatch/internal/detect"
)

// Sample is one atomic camera acquisition. The detections and the JPEG
// come from the same capture, so saved evidence always shows exactly what
// was detected.
type Sample struct {
	// Time is when the frame was captured.
	Time time.Time
	// Detections is the raw inference output, unfiltered.
	Detections []detect.Detection
	// JPEG is the encoded frame.
	JPEG []byte
	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int
}

// Source produces detection samples.
type Source interface {
	// Acquire blocks until the next sample is available, ctx expires, or
	// the source fails. Each call performs one fresh acquisition.
	Acquire(ctx context.Context) (Sample, error)

	// Close releases camera and process resources.
	Close() error
}
