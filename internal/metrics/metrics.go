// Package metrics exposes the daemon's Prometheus instrumentation. Event
// counters are incremented by the detection loop; state gauges are read
// from the live status publisher and frame store at scrape time, so the
// scrape can never disagree with what /api/status reports.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/dogwatch/internal/frames"
	"github.com/sweeney/dogwatch/internal/status"
)

// Metrics holds the daemon's counters and the private registry they are
// registered in.
type Metrics struct {
	registry *prometheus.Registry

	Cycles            prometheus.Counter
	CycleFailures     prometheus.Counter
	FramesSaved       prometheus.Counter
	NotificationsSent prometheus.Counter
}

// New builds the registry, the counters, and the state collector reading
// pub and store. store may be nil, which drops the retention gauge.
func New(pub *status.Publisher, store *frames.Store) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogwatch_cycles_total",
			Help: "Detection cycles attempted.",
		}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogwatch_cycle_failures_total",
			Help: "Detection cycles that failed to acquire a sample.",
		}),
		FramesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogwatch_frames_saved_total",
			Help: "Evidence frames written to the store.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dogwatch_notifications_sent_total",
			Help: "Alert notifications handed to the transport.",
		}),
	}

	registry.MustRegister(m.Cycles, m.CycleFailures, m.FramesSaved, m.NotificationsSent)
	registry.MustRegister(&stateCollector{pub: pub, store: store})

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	})
}

var (
	dogDetectedDesc = prometheus.NewDesc(
		"dogwatch_dog_detected", "Whether a dog is currently detected (1 or 0).", nil, nil,
	)
	privacyModeDesc = prometheus.NewDesc(
		"dogwatch_privacy_mode", "Whether a person is visible and the pipeline is gated (1 or 0).", nil, nil,
	)
	recordingActiveDesc = prometheus.NewDesc(
		"dogwatch_recording_active", "Whether evidence capture is active (1 or 0).", nil, nil,
	)
	dogCountDesc = prometheus.NewDesc(
		"dogwatch_dog_count", "Dogs in the most recent detection cycle.", nil, nil,
	)
	lastDogSeenDesc = prometheus.NewDesc(
		"dogwatch_last_dog_seen_timestamp_seconds", "Unix time of the most recent dog sighting, 0 when never.", nil, nil,
	)
	framesRetainedDesc = prometheus.NewDesc(
		"dogwatch_frames_retained", "Evidence frames currently on disk.", nil, nil,
	)
)

// stateCollector reads live daemon state at scrape time.
type stateCollector struct {
	pub   *status.Publisher
	store *frames.Store
}

func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dogDetectedDesc
	ch <- privacyModeDesc
	ch <- recordingActiveDesc
	ch <- dogCountDesc
	ch <- lastDogSeenDesc
	ch <- framesRetainedDesc
}

func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.pub.Current()

	ch <- prometheus.MustNewConstMetric(dogDetectedDesc, prometheus.GaugeValue, boolValue(snap.DogDetected))
	ch <- prometheus.MustNewConstMetric(privacyModeDesc, prometheus.GaugeValue, boolValue(snap.PrivacyMode()))
	ch <- prometheus.MustNewConstMetric(recordingActiveDesc, prometheus.GaugeValue, boolValue(snap.RecordingActive()))
	ch <- prometheus.MustNewConstMetric(dogCountDesc, prometheus.GaugeValue, float64(snap.DogCount))

	lastSeen := 0.0
	if !snap.LastDogSeen.IsZero() {
		lastSeen = float64(snap.LastDogSeen.Unix())
	}
	ch <- prometheus.MustNewConstMetric(lastDogSeenDesc, prometheus.GaugeValue, lastSeen)

	if c.store != nil {
		ch <- prometheus.MustNewConstMetric(framesRetainedDesc, prometheus.GaugeValue, float64(c.store.Count()))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
