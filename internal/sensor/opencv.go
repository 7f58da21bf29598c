//go:build opencv

package sensor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/sweeney/dogwatch/internal/detect"
)

// MobileNet-SSD input geometry. The network was trained on 300x300
// mean-subtracted RGB images, so every frame is resized into that shape.
const (
	ssdInputSize = 300
	ssdScale     = 1.0 / 127.5
	ssdMean      = 127.5
	ssdRowLen    = 7
)

// minReportScore drops the near-zero rows SSD pads its output tensor
// with. Detection gating proper happens downstream in the analyzer.
const minReportScore = 0.01

// OpenCVSource captures frames from a camera or stream and runs
// MobileNet-SSD inference on the CPU through OpenCV's DNN module. It is
// the fallback for rigs without an IMX500 AI camera.
type OpenCVSource struct {
	mu      sync.Mutex // one capture exchange at a time
	webcam  *gocv.VideoCapture
	net     gocv.Net
	labels  []string
	quality int
}

// NewOpenCVSource opens the capture device and loads the detection
// network.
func NewOpenCVSource(cfg OpenCVConfig) (*OpenCVSource, error) {
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	webcam, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open capture device %q: %w", cfg.Device, err)
	}
	// Keep the driver buffer shallow so Acquire sees the current scene,
	// not a frame queued seconds ago.
	webcam.Set(gocv.VideoCaptureBufferSize, 1)

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		webcam.Close()
		return nil, fmt.Errorf("load network from %q / %q", cfg.ModelPath, cfg.ConfigPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		webcam.Close()
		return nil, fmt.Errorf("set dnn backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		webcam.Close()
		return nil, fmt.Errorf("set dnn target: %w", err)
	}

	return &OpenCVSource{
		webcam:  webcam,
		net:     net,
		labels:  labels,
		quality: cfg.JPEGQuality,
	}, nil
}

// Acquire reads one frame, runs inference on it, and encodes it to JPEG.
// The detections and the JPEG come from the same Mat.
func (s *OpenCVSource) Acquire(ctx context.Context) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := s.webcam.Read(&img); !ok {
		return Sample{}, errors.New("camera read failed")
	}
	if img.Empty() {
		return Sample{}, errors.New("camera returned empty frame")
	}
	taken := time.Now()

	blob := gocv.BlobFromImage(img, ssdScale, image.Pt(ssdInputSize, ssdInputSize),
		gocv.NewScalar(ssdMean, ssdMean, ssdMean, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	detections := s.parseDetections(output)

	jpeg, err := encodeJPEG(img, s.quality)
	if err != nil {
		return Sample{}, err
	}

	return Sample{
		Time:       taken,
		Detections: detections,
		JPEG:       jpeg,
		Width:      img.Cols(),
		Height:     img.Rows(),
	}, nil
}

// parseDetections walks the SSD output tensor. Each row is
// [batch, classID, score, x1, y1, x2, y2] with normalized coordinates.
func (s *OpenCVSource) parseDetections(output gocv.Mat) []detect.Detection {
	reshaped := output.Reshape(1, output.Total()/ssdRowLen)
	defer reshaped.Close()

	var detections []detect.Detection
	for i := 0; i < reshaped.Rows(); i++ {
		score := float64(reshaped.GetFloatAt(i, 2))
		if score < minReportScore {
			continue
		}
		classID := int(reshaped.GetFloatAt(i, 1))
		detections = append(detections, detect.Detection{
			Label: s.label(classID),
			Score: score,
			Box: detect.Rect{
				X1: clamp01(float64(reshaped.GetFloatAt(i, 3))),
				Y1: clamp01(float64(reshaped.GetFloatAt(i, 4))),
				X2: clamp01(float64(reshaped.GetFloatAt(i, 5))),
				Y2: clamp01(float64(reshaped.GetFloatAt(i, 6))),
			},
		})
	}
	return detections
}

func (s *OpenCVSource) label(classID int) string {
	if classID >= 0 && classID < len(s.labels) {
		return s.labels[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}

// Close releases the network and the capture device.
func (s *OpenCVSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.net.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close net: %w", err))
	}
	if err := s.webcam.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close capture: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// SSD occasionally reports boxes a hair outside the frame.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
