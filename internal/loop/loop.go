// Package loop drives the detection pipeline. Once per cycle it acquires
// a sample from the camera source, analyzes it, gates it for privacy, and
// fans the verdict out to the frame store, the notifier, and the status
// publisher. The loop goroutine is the only writer of pipeline state;
// everything the web server reads is published through the status
// snapshot and the store's own locking.
package loop

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sweeney/dogwatch/internal/detect"
	"github.com/sweeney/dogwatch/internal/frames"
	"github.com/sweeney/dogwatch/internal/history"
	"github.com/sweeney/dogwatch/internal/led"
	"github.com/sweeney/dogwatch/internal/metrics"
	"github.com/sweeney/dogwatch/internal/notify"
	"github.com/sweeney/dogwatch/internal/sensor"
	"github.com/sweeney/dogwatch/internal/status"
)

// Broadcaster receives each published status document. *web.Hub satisfies
// it; the loop stays unaware of websockets.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Config wires the loop's collaborators and cadence.
type Config struct {
	Source   sensor.Source
	Analyzer *detect.Analyzer
	Store    *frames.Store
	Throttle *notify.Throttle
	Notifier *notify.Notifier
	Status   *status.Publisher

	// Ledger, LED, Hub, and Metrics are optional; nil disables each.
	Ledger  *history.Ledger
	LED     led.Driver
	Hub     Broadcaster
	Metrics *metrics.Metrics

	// Interval is the cycle cadence. AcquireTimeout bounds the blocking
	// sensor acquisition within one cycle; nothing else is ever
	// interrupted mid-cycle.
	Interval       time.Duration
	AcquireTimeout time.Duration

	// Now and Tick inject time for tests. When nil, the loop uses the
	// wall clock and its own ticker at Interval.
	Now  func() time.Time
	Tick <-chan time.Time
}

// Loop is the detection driver. Run it on exactly one goroutine.
type Loop struct {
	cfg Config
	now func() time.Time

	// lastDogSeen is when a dog was last the sole occupant. Only the
	// loop mutates it; readers get it through published snapshots.
	lastDogSeen time.Time

	// lastKind is the previous cycle's verdict, kept so privacy
	// engagement is logged once per visit rather than once per second.
	lastKind detect.Kind
}

// New creates a Loop from cfg.
func New(cfg Config) *Loop {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Loop{cfg: cfg, now: now}
}

// Run executes detection cycles until ctx is done. Shutdown is observed
// only between cycles; a cycle that has started always completes and
// publishes its status. The returned error is nil on a clean stop and
// non-nil only for fatal conditions such as persistently failing frame
// storage, which the caller should treat as a reason to exit.
func (l *Loop) Run(ctx context.Context) error {
	// A restarted process resumes the last sighting time from the
	// snapshot the status publisher loaded off disk.
	if last := l.cfg.Status.Current().LastDogSeen; !last.IsZero() {
		l.lastDogSeen = last
	}

	tick := l.cfg.Tick
	if tick == nil {
		ticker := time.NewTicker(l.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("loop: stopped")
			return nil
		case <-tick:
			if err := l.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// cycle runs one acquisition through the pipeline. Transient failures are
// logged and leave the cycle as idle-equivalent; only fatal storage
// failure returns an error.
func (l *Loop) cycle(ctx context.Context) error {
	now := l.now()
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.Cycles.Inc()
	}

	actx, cancel := context.WithTimeout(ctx, l.cfg.AcquireTimeout)
	sample, err := l.cfg.Source.Acquire(actx)
	cancel()
	if err != nil {
		log.Printf("loop: acquire failed: %v", err)
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.CycleFailures.Inc()
		}
		l.setLED(false)
		l.publish(detect.Event{Time: now}, now)
		return nil
	}

	ts := sample.Time
	if ts.IsZero() {
		ts = now
	}
	ev := l.cfg.Analyzer.Analyze(ts, sample.Detections)
	decision := detect.Decide(ev)

	switch decision.Kind {
	case detect.KindHumanPresent:
		// Privacy gate: the frame and its detections leave no trace
		// beyond the status flags.
		if l.lastKind != detect.KindHumanPresent {
			log.Printf("loop: human present, evidence capture suspended")
		}
		l.setLED(false)

	case detect.KindDogOnly:
		l.lastDogSeen = ev.Time
		if err := l.saveEvidence(sample.JPEG, ev.Time, decision); err != nil {
			return err
		}
		if l.cfg.Throttle.Allow(now) {
			l.cfg.Notifier.Notify(notify.Alert(now, decision.DogCount, decision.Confidence))
			if l.cfg.Metrics != nil {
				l.cfg.Metrics.NotificationsSent.Inc()
			}
		}
		l.setLED(true)

	case detect.KindIdle:
		l.setLED(false)
	}
	l.lastKind = decision.Kind

	l.publish(ev, now)
	return nil
}

// saveEvidence stores the frame and records the sighting. A transient
// write failure is logged and swallowed so the cycle proceeds; a
// persistent one propagates as fatal.
func (l *Loop) saveEvidence(jpeg []byte, ts time.Time, decision detect.Decision) error {
	rec, err := l.cfg.Store.Insert(jpeg, ts)
	if err != nil {
		if errors.Is(err, frames.ErrStorageFailing) {
			return err
		}
		log.Printf("loop: save frame: %v", err)
		return nil
	}
	log.Printf("loop: %d dog(s) detected (%.0f%% confidence), saved %s",
		decision.DogCount, decision.Confidence*100, rec.Name)
	if l.cfg.Metrics != nil {
		l.cfg.Metrics.FramesSaved.Inc()
	}

	if l.cfg.Ledger != nil {
		sighting := history.Sighting{
			Time:       ts,
			DogCount:   decision.DogCount,
			Confidence: decision.Confidence,
			Frame:      rec.Name,
		}
		if _, err := l.cfg.Ledger.Record(sighting); err != nil {
			log.Printf("loop: record sighting: %v", err)
		}
	}
	return nil
}

// publish replaces the status snapshot. Every cycle publishes, even a
// failed one, so the snapshot's timestamp always reflects a live loop.
func (l *Loop) publish(ev detect.Event, now time.Time) {
	snap := status.Snapshot{
		DogDetected:   ev.DogCount > 0,
		HumanDetected: ev.HumanPresent,
		DogCount:      ev.DogCount,
		LastDogSeen:   l.lastDogSeen,
		GeneratedAt:   now,
	}
	if err := l.cfg.Status.Publish(snap); err != nil {
		log.Printf("loop: %v", err)
	}
	if l.cfg.Hub != nil {
		l.cfg.Hub.Broadcast(status.FormatJSON(snap))
	}
}

func (l *Loop) setLED(on bool) {
	if l.cfg.LED == nil {
		return
	}
	if err := l.cfg.LED.Set(on); err != nil {
		log.Printf("loop: set indicator: %v", err)
	}
}
