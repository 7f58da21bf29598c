package notify

import "time"

// Throttle enforces the minimum interval between outbound alerts. It is
// not safe for concurrent use; only the detection loop consults it. Time
// always arrives as a parameter so tests control the clock.
type Throttle struct {
	cooldown time.Duration
	lastSent time.Time
}

// NewThrottle creates a throttle with the given cooldown. A cooldown of
// zero (or less) disables rate limiting.
func NewThrottle(cooldown time.Duration) *Throttle {
	return &Throttle{cooldown: cooldown}
}

// Allow reports whether an alert may go out at now and, when it may,
// records now as the last send time. Suppressed calls leave the last send
// time untouched: the cooldown window never slides while dogs linger.
// The comparison is inclusive, so two calls exactly cooldown apart both
// pass. A fresh throttle allows immediately.
func (t *Throttle) Allow(now time.Time) bool {
	if !t.lastSent.IsZero() && now.Sub(t.lastSent) < t.cooldown {
		return false
	}
	t.lastSent = now
	return true
}
