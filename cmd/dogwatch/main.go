// Command dogwatch watches the couch for dogs, saves evidence frames and
// sends alerts, and refuses to record anything while a person is visible.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/dogwatch/internal/config"
	"github.com/sweeney/dogwatch/internal/detect"
	"github.com/sweeney/dogwatch/internal/frames"
	"github.com/sweeney/dogwatch/internal/history"
	"github.com/sweeney/dogwatch/internal/led"
	"github.com/sweeney/dogwatch/internal/loop"
	"github.com/sweeney/dogwatch/internal/metrics"
	"github.com/sweeney/dogwatch/internal/notify"
	"github.com/sweeney/dogwatch/internal/sensor"
	"github.com/sweeney/dogwatch/internal/status"
	"github.com/sweeney/dogwatch/internal/web"
)

func main() {
	probe := flag.Bool("probe", false, "acquire one sample, print the verdict and exit")
	configPath := flag.String("config", "", "YAML config file (optional)")
	registerFlags(flag.CommandLine, config.Default())
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	overlay(flag.CommandLine, &cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *probe); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// registerFlags declares the tunable knobs on fs. Defaults come from def so
// -help shows the effective stock configuration; values the user actually
// sets are folded in by overlay, after the env and file layers.
func registerFlags(fs *flag.FlagSet, def config.Config) {
	fs.String("instance", def.InstanceID, "instance name used in health messages (empty generates one)")
	fs.Duration("interval", def.Interval, "detection cycle interval")
	fs.Duration("acquire-timeout", def.AcquireTimeout, "single sample acquisition timeout")
	fs.Duration("cooldown", def.Cooldown, "minimum gap between push notifications")
	fs.Duration("heartbeat", def.Heartbeat, "heartbeat interval (0 to disable)")
	fs.Float64("dog-threshold", def.DogThreshold, "minimum dog confidence")
	fs.Float64("human-threshold", def.HumanThreshold, "minimum human confidence")
	fs.String("roi", def.ROI, `couch zone as frame fractions "x1,y1,x2,y2"`)
	fs.String("frame-dir", def.FrameDir, "evidence frame directory")
	fs.Int("frame-capacity", def.FrameCapacity, "evidence frames retained before the oldest is evicted")
	fs.String("status-file", def.StatusFile, "status snapshot file")
	fs.String("history-db", def.HistoryDB, "sqlite sighting ledger (empty to disable)")
	fs.String("http", def.HTTPAddr, "HTTP listen address")
	fs.String("notifier", def.Notifier, "push transport: ntfy, mqtt or off")
	fs.String("ntfy-server", def.NtfyServer, "ntfy server URL")
	fs.String("ntfy-topic", def.NtfyTopic, "ntfy alert topic")
	fs.String("mqtt-broker", def.MQTTBroker, "MQTT broker address")
	fs.String("mqtt-topic", def.MQTTTopic, "MQTT alert topic")
	fs.String("source", def.Source, "camera backend: imx500, opencv or fake")
	fs.String("helper", def.HelperCommand, "imx500 helper command line")
	fs.Int("led-pin", def.LEDPin, "recording indicator BCM pin (-1 to disable)")
}

// overlay copies explicitly set flags onto cfg, so flags win over the
// defaults, the environment and the config file.
func overlay(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "instance":
			cfg.InstanceID = v.(string)
		case "interval":
			cfg.Interval = v.(time.Duration)
		case "acquire-timeout":
			cfg.AcquireTimeout = v.(time.Duration)
		case "cooldown":
			cfg.Cooldown = v.(time.Duration)
		case "heartbeat":
			cfg.Heartbeat = v.(time.Duration)
		case "dog-threshold":
			cfg.DogThreshold = v.(float64)
		case "human-threshold":
			cfg.HumanThreshold = v.(float64)
		case "roi":
			cfg.ROI = v.(string)
		case "frame-dir":
			cfg.FrameDir = v.(string)
		case "frame-capacity":
			cfg.FrameCapacity = v.(int)
		case "status-file":
			cfg.StatusFile = v.(string)
		case "history-db":
			cfg.HistoryDB = v.(string)
		case "http":
			cfg.HTTPAddr = v.(string)
		case "notifier":
			cfg.Notifier = v.(string)
		case "ntfy-server":
			cfg.NtfyServer = v.(string)
		case "ntfy-topic":
			cfg.NtfyTopic = v.(string)
		case "mqtt-broker":
			cfg.MQTTBroker = v.(string)
		case "mqtt-topic":
			cfg.MQTTTopic = v.(string)
		case "source":
			cfg.Source = v.(string)
		case "helper":
			cfg.HelperCommand = v.(string)
		case "led-pin":
			cfg.LEDPin = v.(int)
		}
	})
}

func run(cfg config.Config, probe bool) error {
	detectCfg, err := cfg.DetectConfig()
	if err != nil {
		return err
	}
	analyzer := detect.NewAnalyzer(detectCfg)

	source, err := buildSource(cfg)
	if err != nil {
		return fmt.Errorf("init camera source: %w", err)
	}
	defer source.Close()

	// Probe mode: one capture, one verdict, exit.
	if probe {
		return runProbe(source, analyzer, cfg.AcquireTimeout)
	}

	instance := cfg.InstanceID
	if instance == "" {
		instance = "dogwatch-" + uuid.NewString()[:8]
	}

	store, err := frames.Open(cfg.FrameDir, cfg.FrameCapacity)
	if err != nil {
		return fmt.Errorf("init frame store: %w", err)
	}

	pub := status.NewPublisher(cfg.StatusFile)
	if err := pub.Load(); err != nil {
		// A corrupt status file must not keep the watcher down.
		log.Printf("resume status: %v", err)
	}

	var ledger *history.Ledger
	if cfg.HistoryDB != "" {
		ledger, err = history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer ledger.Close()
	}

	indicator := buildIndicator(cfg.LEDPin)
	defer indicator.Close()

	transport, err := buildTransport(cfg, instance)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	notifier := notify.NewNotifier(transport)
	defer notifier.Close()

	m := metrics.New(pub, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := web.NewHub()
	go hub.Run(ctx)

	srv := web.New(cfg.HTTPAddr, pub, store, ledger, hub, m.Handler())
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("web server error: %v", err)
		}
	}()
	defer func() {
		// Cancel first so the hub hangs up its websocket clients; Shutdown
		// waits on those handlers.
		cancel()
		sctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf("web server shutdown: %v", err)
		}
	}()
	log.Printf("web server listening on %s", cfg.HTTPAddr)

	heartbeat := notify.NewHeartbeat(notifier, instance, cfg.Heartbeat)
	go heartbeat.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("received %v, shutting down", s)
		cancel()
	}()

	log.Printf("started: instance=%s interval=%v cooldown=%v source=%s notifier=%s",
		instance, cfg.Interval, cfg.Cooldown, cfg.Source, cfg.Notifier)

	return loop.New(loop.Config{
		Source:         source,
		Analyzer:       analyzer,
		Store:          store,
		Throttle:       notify.NewThrottle(cfg.Cooldown),
		Notifier:       notifier,
		Status:         pub,
		Ledger:         ledger,
		LED:            indicator,
		Hub:            hub,
		Metrics:        m,
		Interval:       cfg.Interval,
		AcquireTimeout: cfg.AcquireTimeout,
	}).Run(ctx)
}

// runProbe performs one acquisition and prints the verdict, for checking
// camera wiring without starting the daemon.
func runProbe(source sensor.Source, analyzer *detect.Analyzer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sample, err := source.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire sample: %w", err)
	}

	ts := sample.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ev := analyzer.Analyze(ts, sample.Detections)
	decision := detect.Decide(ev)

	fmt.Printf("verdict: %s\n", decision.Kind)
	fmt.Printf("dogs: %d (max confidence %.2f)\n", ev.DogCount, ev.MaxDogConfidence)
	fmt.Printf("human present: %v\n", ev.HumanPresent)
	fmt.Printf("frame: %dx%d, %d byte JPEG\n", sample.Width, sample.Height, len(sample.JPEG))
	return nil
}

// buildSource constructs the configured camera backend. The fake source
// yields idle frames forever, which is enough to exercise the service
// surface on hardware without a camera.
func buildSource(cfg config.Config) (sensor.Source, error) {
	switch cfg.Source {
	case "imx500":
		command, args := splitCommand(cfg.HelperCommand)
		return sensor.StartIMX500(command, args...)
	case "opencv":
		return sensor.NewOpenCVSource(sensor.OpenCVConfig{
			Device:      cfg.CameraDevice,
			ModelPath:   cfg.ModelPath,
			ConfigPath:  cfg.ModelConfig,
			LabelsPath:  cfg.LabelsPath,
			JPEGQuality: cfg.JPEGQuality,
		})
	case "fake":
		return sensor.NewFakeSource(sensor.Sample{}), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// buildTransport constructs the configured push transport. "off" yields a
// transport that discards everything, so the rest of the daemon never cares
// whether pushes are enabled.
func buildTransport(cfg config.Config, clientID string) (notify.Transport, error) {
	switch cfg.Notifier {
	case "ntfy":
		return notify.NewNtfyTransport(cfg.NtfyServer, cfg.NtfyTopic,
			deriveHealthTopic(cfg.NtfyTopic, cfg.NtfyHealthTopic)), nil
	case "mqtt":
		return notify.NewMQTTTransport(cfg.MQTTBroker, clientID, cfg.MQTTTopic,
			deriveHealthTopic(cfg.MQTTTopic, cfg.MQTTHealthTopic))
	case "off":
		return notify.NopTransport{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}

// buildIndicator prepares the recording LED. Failing to claim the line is
// logged, not fatal; the watcher works without its indicator.
func buildIndicator(pin int) led.Driver {
	if pin < 0 {
		return led.NopDriver{}
	}
	driver, err := led.NewRealDriver(pin)
	if err != nil {
		log.Printf("led unavailable on pin %d: %v", pin, err)
		return led.NopDriver{}
	}
	return driver
}

// deriveHealthTopic picks the health topic, defaulting to the alert topic
// with a "-health" suffix so heartbeats never drown out alerts.
func deriveHealthTopic(topic, health string) string {
	if health != "" {
		return health
	}
	return topic + "-health"
}

// splitCommand splits a helper command line into the command and its
// arguments. Quoting is not supported; a helper path with spaces needs a
// wrapper script.
func splitCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
