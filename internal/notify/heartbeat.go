package notify

import (
	"context"
	"fmt"
	"time"
)

// Heartbeat periodically reports liveness on the health topic. It runs on
// its own timer, independent of the detection cadence, so a wedged
// detection loop is visible as missing heartbeats.
type Heartbeat struct {
	notifier *Notifier
	instance string
	interval time.Duration
}

// NewHeartbeat creates a heartbeat for the named instance. An interval of
// zero (or less) disables it.
func NewHeartbeat(notifier *Notifier, instance string, interval time.Duration) *Heartbeat {
	return &Heartbeat{notifier: notifier, instance: instance, interval: interval}
}

// Run sends one heartbeat immediately, then one per interval until ctx is
// done. It returns immediately when the heartbeat is disabled.
func (h *Heartbeat) Run(ctx context.Context) {
	if h.interval <= 0 {
		return
	}
	h.notifier.Notify(h.Message(time.Now()))

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.notifier.Notify(h.Message(time.Now()))
		}
	}
}

// Message builds the low-priority heartbeat message for the health topic.
func (h *Heartbeat) Message(now time.Time) Message {
	return Message{
		Time:     now,
		Title:    "DogWatch Heartbeat",
		Body:     fmt.Sprintf("DogWatch %s running as of %s", h.instance, now.Format("2006-01-02 15:04:05")),
		Priority: PriorityLow,
		Tags:     "heartbeat",
		Health:   true,
	}
}
