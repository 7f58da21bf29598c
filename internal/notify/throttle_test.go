package notify

import (
	"testing"
	"time"
)

var throttleStart = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestThrottleFirstSendAllowed(t *testing.T) {
	th := NewThrottle(60 * time.Second)
	if !th.Allow(throttleStart) {
		t.Error("expected first send to be allowed")
	}
}

// Acceptance scenario: with a 60s cooldown, sends at t=0 and t=61 go out
// and the one at t=30 is suppressed.
func TestThrottleCooldownScenario(t *testing.T) {
	th := NewThrottle(60 * time.Second)

	if !th.Allow(throttleStart) {
		t.Error("t=0: expected send")
	}
	if th.Allow(throttleStart.Add(30 * time.Second)) {
		t.Error("t=30: expected suppression")
	}
	if !th.Allow(throttleStart.Add(61 * time.Second)) {
		t.Error("t=61: expected send")
	}
}

func TestThrottleSuppressionDoesNotSlideWindow(t *testing.T) {
	th := NewThrottle(60 * time.Second)

	th.Allow(throttleStart)
	// A dog lingering in frame produces suppressed attempts every second;
	// none of them may push the next send further out.
	for s := 1; s < 60; s++ {
		if th.Allow(throttleStart.Add(time.Duration(s) * time.Second)) {
			t.Fatalf("t=%d: expected suppression", s)
		}
	}
	if !th.Allow(throttleStart.Add(60 * time.Second)) {
		t.Error("t=60: expected send exactly at cooldown boundary")
	}
}

func TestThrottleBoundaryIsInclusive(t *testing.T) {
	th := NewThrottle(60 * time.Second)
	th.Allow(throttleStart)
	if !th.Allow(throttleStart.Add(60 * time.Second)) {
		t.Error("expected send at exactly lastSent+cooldown")
	}
}

func TestThrottleZeroCooldownAlwaysAllows(t *testing.T) {
	th := NewThrottle(0)
	for i := 0; i < 3; i++ {
		if !th.Allow(throttleStart.Add(time.Duration(i) * time.Millisecond)) {
			t.Fatalf("send %d: expected zero cooldown to always allow", i)
		}
	}
}
