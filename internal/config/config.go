// Package config resolves the watcher configuration from layered sources:
// built-in defaults, a .env file, DOGWATCH_* environment variables, and an
// optional YAML file. Command-line flags are folded in by the caller, so
// the precedence seen by the daemon is defaults, env, file, flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// InstanceID identifies this watcher in notifications and health
	// messages. Empty means the daemon generates one at startup.
	InstanceID string

	// Interval is the detection cycle cadence. AcquireTimeout bounds a
	// single frame acquisition within a cycle.
	Interval       time.Duration
	AcquireTimeout time.Duration

	// Cooldown is the minimum gap between push notifications. Heartbeat
	// is the health message cadence; zero disables heartbeats.
	Cooldown  time.Duration
	Heartbeat time.Duration

	DogLabel       string
	HumanLabel     string
	DogThreshold   float64
	HumanThreshold float64

	// ROI is the couch zone as four comma-separated fractions of the
	// frame, "x1,y1,x2,y2". "0,0,1,1" watches the whole frame.
	ROI        string
	ROIOverlap float64

	FrameDir      string
	FrameCapacity int
	JPEGQuality   int

	StatusFile string

	// HistoryDB is the sqlite sighting ledger path. Empty disables the
	// ledger entirely.
	HistoryDB string

	HTTPAddr string

	// Notifier selects the push transport: "ntfy", "mqtt" or "off".
	Notifier        string
	NtfyServer      string
	NtfyTopic       string
	NtfyHealthTopic string
	MQTTBroker      string
	MQTTTopic       string
	MQTTHealthTopic string

	// Source selects the camera backend: "imx500" (helper subprocess),
	// "opencv" (V4L2 webcam, needs the opencv build tag) or "fake".
	Source string

	// HelperCommand is the imx500 helper invocation, command and
	// arguments separated by spaces.
	HelperCommand string

	CameraDevice string
	ModelPath    string
	ModelConfig  string
	LabelsPath   string

	// LEDPin is the BCM number of the recording indicator line.
	// -1 disables the indicator.
	LEDPin int
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Interval:       time.Second,
		AcquireTimeout: 5 * time.Second,
		Cooldown:       60 * time.Second,
		Heartbeat:      30 * time.Minute,

		DogLabel:       "dog",
		HumanLabel:     "person",
		DogThreshold:   0.50,
		HumanThreshold: 0.30,
		ROI:            "0,0,1,1",
		ROIOverlap:     0.5,

		FrameDir:      "frames",
		FrameCapacity: 10,
		JPEGQuality:   75,

		StatusFile: "status.json",
		HistoryDB:  "dogwatch.db",

		HTTPAddr: ":8080",

		// Pushes stay off until a topic is configured. The ntfy server
		// default means setting ntfy_topic alone is enough to go live.
		Notifier:        "off",
		NtfyServer:      "https://ntfy.sh",
		MQTTBroker:      "tcp://localhost:1883",
		MQTTTopic:       "dogwatch/alerts",
		MQTTHealthTopic: "dogwatch/health",

		Source:        "imx500",
		HelperCommand: "dogwatch-helper",
		CameraDevice:  "0",
		LabelsPath:    "coco_labels.txt",

		LEDPin: 17,
	}
}

// Load resolves the configuration from defaults, a .env file when present,
// DOGWATCH_* environment variables, and the YAML file at path when path is
// non-empty. The result is not validated; callers fold in their flag
// overrides first and then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	// A missing .env file is the normal case.
	_ = godotenv.Load()
	cfg.applyEnv()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// applyEnv overlays DOGWATCH_* environment variables onto c. Malformed
// values are ignored and the current value kept.
func (c *Config) applyEnv() {
	c.InstanceID = getEnv("DOGWATCH_INSTANCE_ID", c.InstanceID)

	c.Interval = getEnvAsDuration("DOGWATCH_INTERVAL", c.Interval)
	c.AcquireTimeout = getEnvAsDuration("DOGWATCH_ACQUIRE_TIMEOUT", c.AcquireTimeout)
	c.Cooldown = getEnvAsDuration("DOGWATCH_COOLDOWN", c.Cooldown)
	c.Heartbeat = getEnvAsDuration("DOGWATCH_HEARTBEAT", c.Heartbeat)

	c.DogLabel = getEnv("DOGWATCH_DOG_LABEL", c.DogLabel)
	c.HumanLabel = getEnv("DOGWATCH_HUMAN_LABEL", c.HumanLabel)
	c.DogThreshold = getEnvAsFloat("DOGWATCH_DOG_THRESHOLD", c.DogThreshold)
	c.HumanThreshold = getEnvAsFloat("DOGWATCH_HUMAN_THRESHOLD", c.HumanThreshold)
	c.ROI = getEnv("DOGWATCH_ROI", c.ROI)
	c.ROIOverlap = getEnvAsFloat("DOGWATCH_ROI_OVERLAP", c.ROIOverlap)

	c.FrameDir = getEnv("DOGWATCH_FRAME_DIR", c.FrameDir)
	c.FrameCapacity = getEnvAsInt("DOGWATCH_FRAME_CAPACITY", c.FrameCapacity)
	c.JPEGQuality = getEnvAsInt("DOGWATCH_JPEG_QUALITY", c.JPEGQuality)

	c.StatusFile = getEnv("DOGWATCH_STATUS_FILE", c.StatusFile)
	c.HistoryDB = getEnv("DOGWATCH_HISTORY_DB", c.HistoryDB)

	c.HTTPAddr = getEnv("DOGWATCH_HTTP_ADDR", c.HTTPAddr)

	c.Notifier = getEnv("DOGWATCH_NOTIFIER", c.Notifier)
	c.NtfyServer = getEnv("DOGWATCH_NTFY_SERVER", c.NtfyServer)
	c.NtfyTopic = getEnv("DOGWATCH_NTFY_TOPIC", c.NtfyTopic)
	c.NtfyHealthTopic = getEnv("DOGWATCH_NTFY_HEALTH_TOPIC", c.NtfyHealthTopic)
	c.MQTTBroker = getEnv("DOGWATCH_MQTT_BROKER", c.MQTTBroker)
	c.MQTTTopic = getEnv("DOGWATCH_MQTT_TOPIC", c.MQTTTopic)
	c.MQTTHealthTopic = getEnv("DOGWATCH_MQTT_HEALTH_TOPIC", c.MQTTHealthTopic)

	c.Source = getEnv("DOGWATCH_SOURCE", c.Source)
	c.HelperCommand = getEnv("DOGWATCH_HELPER", c.HelperCommand)
	c.CameraDevice = getEnv("DOGWATCH_CAMERA_DEVICE", c.CameraDevice)
	c.ModelPath = getEnv("DOGWATCH_MODEL", c.ModelPath)
	c.ModelConfig = getEnv("DOGWATCH_MODEL_CONFIG", c.ModelConfig)
	c.LabelsPath = getEnv("DOGWATCH_LABELS", c.LabelsPath)

	c.LEDPin = getEnvAsInt("DOGWATCH_LED_PIN", c.LEDPin)
}

// fileConfig mirrors Config with pointer fields so the YAML layer only
// overrides keys that are actually present in the file. Durations are
// millisecond integers on disk, matching the status file convention.
type fileConfig struct {
	InstanceID *string `yaml:"instance_id"`

	IntervalMs       *int64 `yaml:"interval_ms"`
	AcquireTimeoutMs *int64 `yaml:"acquire_timeout_ms"`
	CooldownMs       *int64 `yaml:"cooldown_ms"`
	HeartbeatMs      *int64 `yaml:"heartbeat_ms"`

	DogLabel       *string  `yaml:"dog_label"`
	HumanLabel     *string  `yaml:"human_label"`
	DogThreshold   *float64 `yaml:"dog_threshold"`
	HumanThreshold *float64 `yaml:"human_threshold"`
	ROI            *string  `yaml:"roi"`
	ROIOverlap     *float64 `yaml:"roi_overlap"`

	FrameDir      *string `yaml:"frame_dir"`
	FrameCapacity *int    `yaml:"frame_capacity"`
	JPEGQuality   *int    `yaml:"jpeg_quality"`

	StatusFile *string `yaml:"status_file"`
	HistoryDB  *string `yaml:"history_db"`

	HTTPAddr *string `yaml:"http_addr"`

	Notifier        *string `yaml:"notifier"`
	NtfyServer      *string `yaml:"ntfy_server"`
	NtfyTopic       *string `yaml:"ntfy_topic"`
	NtfyHealthTopic *string `yaml:"ntfy_health_topic"`
	MQTTBroker      *string `yaml:"mqtt_broker"`
	MQTTTopic       *string `yaml:"mqtt_topic"`
	MQTTHealthTopic *string `yaml:"mqtt_health_topic"`

	Source        *string `yaml:"source"`
	HelperCommand *string `yaml:"helper_command"`
	CameraDevice  *string `yaml:"camera_device"`
	ModelPath     *string `yaml:"model_path"`
	ModelConfig   *string `yaml:"model_config_path"`
	LabelsPath    *string `yaml:"labels_path"`

	LEDPin *int `yaml:"led_pin"`
}

// loadFile overlays the YAML file at path onto c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&c.InstanceID, fc.InstanceID)

	setDurationMs(&c.Interval, fc.IntervalMs)
	setDurationMs(&c.AcquireTimeout, fc.AcquireTimeoutMs)
	setDurationMs(&c.Cooldown, fc.CooldownMs)
	setDurationMs(&c.Heartbeat, fc.HeartbeatMs)

	setString(&c.DogLabel, fc.DogLabel)
	setString(&c.HumanLabel, fc.HumanLabel)
	setFloat(&c.DogThreshold, fc.DogThreshold)
	setFloat(&c.HumanThreshold, fc.HumanThreshold)
	setString(&c.ROI, fc.ROI)
	setFloat(&c.ROIOverlap, fc.ROIOverlap)

	setString(&c.FrameDir, fc.FrameDir)
	setInt(&c.FrameCapacity, fc.FrameCapacity)
	setInt(&c.JPEGQuality, fc.JPEGQuality)

	setString(&c.StatusFile, fc.StatusFile)
	setString(&c.HistoryDB, fc.HistoryDB)

	setString(&c.HTTPAddr, fc.HTTPAddr)

	setString(&c.Notifier, fc.Notifier)
	setString(&c.NtfyServer, fc.NtfyServer)
	setString(&c.NtfyTopic, fc.NtfyTopic)
	setString(&c.NtfyHealthTopic, fc.NtfyHealthTopic)
	setString(&c.MQTTBroker, fc.MQTTBroker)
	setString(&c.MQTTTopic, fc.MQTTTopic)
	setString(&c.MQTTHealthTopic, fc.MQTTHealthTopic)

	setString(&c.Source, fc.Source)
	setString(&c.HelperCommand, fc.HelperCommand)
	setString(&c.CameraDevice, fc.CameraDevice)
	setString(&c.ModelPath, fc.ModelPath)
	setString(&c.ModelConfig, fc.ModelConfig)
	setString(&c.LabelsPath, fc.LabelsPath)

	setInt(&c.LEDPin, fc.LEDPin)

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDurationMs(dst *time.Duration, src *int64) {
	if src != nil {
		*dst = time.Duration(*src) * time.Millisecond
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
