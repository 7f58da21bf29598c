package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sweeney/dogwatch/internal/detect"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the resolved configuration. Field names in errors use
// the YAML spelling.
func (c *Config) Validate() error {
	if c.InstanceID != "" && !instanceIDPattern.MatchString(c.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if c.Interval <= 0 {
		return fmt.Errorf("interval_ms must be > 0")
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire_timeout_ms must be > 0")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown_ms must be >= 0")
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat_ms must be >= 0")
	}

	if c.DogLabel == "" {
		return fmt.Errorf("dog_label is required")
	}
	if c.HumanLabel == "" {
		return fmt.Errorf("human_label is required")
	}
	if c.DogLabel == c.HumanLabel {
		return fmt.Errorf("dog_label and human_label must differ")
	}
	if c.DogThreshold < 0 || c.DogThreshold > 1 {
		return fmt.Errorf("dog_threshold must be within [0,1]")
	}
	if c.HumanThreshold < 0 || c.HumanThreshold > 1 {
		return fmt.Errorf("human_threshold must be within [0,1]")
	}
	if _, err := ParseROI(c.ROI); err != nil {
		return err
	}
	if c.ROIOverlap <= 0 || c.ROIOverlap > 1 {
		return fmt.Errorf("roi_overlap must be within (0,1]")
	}

	if c.FrameDir == "" {
		return fmt.Errorf("frame_dir is required")
	}
	if c.FrameCapacity <= 0 {
		return fmt.Errorf("frame_capacity must be > 0")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be within [1,100]")
	}
	if c.StatusFile == "" {
		return fmt.Errorf("status_file is required")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}

	switch c.Notifier {
	case "ntfy":
		if c.NtfyServer == "" {
			return fmt.Errorf("ntfy_server is required when notifier is ntfy")
		}
		if c.NtfyTopic == "" {
			return fmt.Errorf("ntfy_topic is required when notifier is ntfy")
		}
	case "mqtt":
		if c.MQTTBroker == "" {
			return fmt.Errorf("mqtt_broker is required when notifier is mqtt")
		}
		if c.MQTTTopic == "" {
			return fmt.Errorf("mqtt_topic is required when notifier is mqtt")
		}
	case "off":
	default:
		return fmt.Errorf("notifier must be one of ntfy, mqtt, off (got %q)", c.Notifier)
	}

	switch c.Source {
	case "imx500":
		if c.HelperCommand == "" {
			return fmt.Errorf("helper_command is required when source is imx500")
		}
	case "opencv":
		if c.CameraDevice == "" {
			return fmt.Errorf("camera_device is required when source is opencv")
		}
		if c.ModelPath == "" {
			return fmt.Errorf("model_path is required when source is opencv")
		}
		if c.ModelConfig == "" {
			return fmt.Errorf("model_config_path is required when source is opencv")
		}
		if c.LabelsPath == "" {
			return fmt.Errorf("labels_path is required when source is opencv")
		}
	case "fake":
	default:
		return fmt.Errorf("source must be one of imx500, opencv, fake (got %q)", c.Source)
	}

	if c.LEDPin < -1 {
		return fmt.Errorf("led_pin must be a BCM line number, or -1 to disable")
	}

	return nil
}

// ParseROI parses a region of interest given as four comma-separated
// fractions of the frame dimensions, "x1,y1,x2,y2". The empty string
// means the full frame.
func ParseROI(s string) (detect.Rect, error) {
	if s == "" {
		return detect.FullFrame, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return detect.Rect{}, fmt.Errorf("roi must be four comma-separated fractions x1,y1,x2,y2 (got %q)", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return detect.Rect{}, fmt.Errorf("roi component %d is not a number (got %q)", i+1, p)
		}
		if v < 0 || v > 1 {
			return detect.Rect{}, fmt.Errorf("roi component %d must be within [0,1] (got %v)", i+1, v)
		}
		vals[i] = v
	}
	r := detect.Rect{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return detect.Rect{}, fmt.Errorf("roi must satisfy x1 < x2 and y1 < y2 (got %q)", s)
	}
	return r, nil
}

// DetectConfig builds the analyzer configuration from the resolved
// thresholds, labels and region of interest.
func (c *Config) DetectConfig() (detect.Config, error) {
	roi, err := ParseROI(c.ROI)
	if err != nil {
		return detect.Config{}, err
	}
	return detect.Config{
		DogLabel:       c.DogLabel,
		HumanLabel:     c.HumanLabel,
		DogThreshold:   c.DogThreshold,
		HumanThreshold: c.HumanThreshold,
		ROI:            roi,
		ROIOverlap:     c.ROIOverlap,
	}, nil
}
