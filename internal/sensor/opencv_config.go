package sensor

import (
	"fmt"
	"os"
	"strings"
)

// OpenCVConfig configures the OpenCV capture source.
type OpenCVConfig struct {
	// Device is the capture device: a V4L2 index ("0"), a device path,
	// or a stream URL.
	Device string

	// ModelPath and ConfigPath locate the MobileNet-SSD weights and the
	// network description OpenCV loads them from.
	ModelPath  string
	ConfigPath string

	// LabelsPath is a text file with one class label per line. The line
	// number is the network's class id.
	LabelsPath string

	// JPEGQuality is the encode quality for captured frames (1-100).
	JPEGQuality int
}

// LoadLabels reads a class label file, one label per line. Interior blank
// lines are kept because the line number doubles as the class id.
func LoadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	lines := strings.Split(string(raw), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return lines, nil
}
