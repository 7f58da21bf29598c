package main

import (
	"errors"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dogwatch/internal/config"
	"github.com/sweeney/dogwatch/internal/detect"
	"github.com/sweeney/dogwatch/internal/notify"
	"github.com/sweeney/dogwatch/internal/sensor"
)

func TestOverlayPrecedence(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs, config.Default())
	if err := fs.Parse([]string{"-cooldown", "90s", "-notifier", "off"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	cfg.Cooldown = 10 * time.Second // as if the config file set it
	cfg.Interval = 5 * time.Second  // no flag given, must survive
	overlay(fs, &cfg)

	if cfg.Cooldown != 90*time.Second {
		t.Errorf("cooldown: got %v, want flag value 90s", cfg.Cooldown)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("interval: got %v, want file value untouched", cfg.Interval)
	}
}

func TestOverlayCoversEveryFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs, config.Default())
	args := []string{
		"-instance", "upstairs",
		"-interval", "2s",
		"-acquire-timeout", "9s",
		"-cooldown", "90s",
		"-heartbeat", "1h",
		"-dog-threshold", "0.6",
		"-human-threshold", "0.4",
		"-roi", "0.1,0.1,0.9,0.9",
		"-frame-dir", "/tmp/fr",
		"-frame-capacity", "25",
		"-status-file", "/tmp/st.json",
		"-history-db", "/tmp/hi.db",
		"-http", ":9090",
		"-notifier", "ntfy",
		"-ntfy-server", "https://push.example.net",
		"-ntfy-topic", "couch",
		"-mqtt-broker", "tcp://mqtt.local:1883",
		"-mqtt-topic", "pets/alerts",
		"-source", "fake",
		"-helper", "python3 helper.py",
		"-led-pin", "-1",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	overlay(fs, &cfg)

	want := config.Default()
	want.InstanceID = "upstairs"
	want.Interval = 2 * time.Second
	want.AcquireTimeout = 9 * time.Second
	want.Cooldown = 90 * time.Second
	want.Heartbeat = time.Hour
	want.DogThreshold = 0.6
	want.HumanThreshold = 0.4
	want.ROI = "0.1,0.1,0.9,0.9"
	want.FrameDir = "/tmp/fr"
	want.FrameCapacity = 25
	want.StatusFile = "/tmp/st.json"
	want.HistoryDB = "/tmp/hi.db"
	want.HTTPAddr = ":9090"
	want.Notifier = "ntfy"
	want.NtfyServer = "https://push.example.net"
	want.NtfyTopic = "couch"
	want.MQTTBroker = "tcp://mqtt.local:1883"
	want.MQTTTopic = "pets/alerts"
	want.Source = "fake"
	want.HelperCommand = "python3 helper.py"
	want.LEDPin = -1

	if cfg != want {
		t.Errorf("overlay mismatch:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in   string
		cmd  string
		args string
	}{
		{"dogwatch-helper", "dogwatch-helper", ""},
		{"python3 helper.py --model best.rpk", "python3", "helper.py --model best.rpk"},
		{"  spaced   out  ", "spaced", "out"},
		{"", "", ""},
	}
	for _, tc := range cases {
		cmd, args := splitCommand(tc.in)
		if cmd != tc.cmd {
			t.Errorf("splitCommand(%q) cmd: got %q, want %q", tc.in, cmd, tc.cmd)
		}
		if got := strings.Join(args, " "); got != tc.args {
			t.Errorf("splitCommand(%q) args: got %q, want %q", tc.in, got, tc.args)
		}
	}
}

func TestDeriveHealthTopic(t *testing.T) {
	if got := deriveHealthTopic("couch", ""); got != "couch-health" {
		t.Errorf("derived topic: got %q, want %q", got, "couch-health")
	}
	if got := deriveHealthTopic("couch", "beats"); got != "beats" {
		t.Errorf("explicit topic: got %q, want %q", got, "beats")
	}
}

func TestBuildTransport(t *testing.T) {
	cfg := config.Default()

	tr, err := buildTransport(cfg, "test")
	if err != nil {
		t.Fatalf("off transport: %v", err)
	}
	if _, ok := tr.(notify.NopTransport); !ok {
		t.Errorf("notifier off: got %T, want NopTransport", tr)
	}

	cfg.Notifier = "ntfy"
	cfg.NtfyTopic = "couch"
	tr, err = buildTransport(cfg, "test")
	if err != nil {
		t.Fatalf("ntfy transport: %v", err)
	}
	if _, ok := tr.(*notify.NtfyTransport); !ok {
		t.Errorf("notifier ntfy: got %T, want *NtfyTransport", tr)
	}

	cfg.Notifier = "pigeon"
	if _, err := buildTransport(cfg, "test"); err == nil {
		t.Error("expected an error for an unknown notifier")
	}
}

func TestBuildSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "fake"

	source, err := buildSource(cfg)
	if err != nil {
		t.Fatalf("fake source: %v", err)
	}
	defer source.Close()
	if _, ok := source.(*sensor.FakeSource); !ok {
		t.Errorf("source fake: got %T, want *FakeSource", source)
	}

	cfg.Source = "pinhole"
	if _, err := buildSource(cfg); err == nil {
		t.Error("expected an error for an unknown source")
	}
}

func TestRunProbe(t *testing.T) {
	analyzer := detect.NewAnalyzer(detect.DefaultConfig())

	source := sensor.NewFakeSource(sensor.DogSample(0.9))
	if err := runProbe(source, analyzer, time.Second); err != nil {
		t.Fatalf("probe: %v", err)
	}

	broken := sensor.NewFakeSource()
	broken.AcquireError = errors.New("no camera")
	if err := runProbe(broken, analyzer, time.Second); err == nil {
		t.Error("expected probe to report the acquisition failure")
	}
}
