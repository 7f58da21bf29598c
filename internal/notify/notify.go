// Package notify delivers push notifications with rate limiting and an
// abstraction over the delivery transport for testing. Delivery is always
// best-effort and at-most-once: a failed send is logged and dropped, never
// retried, so a notification can not arrive twice or arrive stale.
package notify

import (
	"fmt"
	"time"
)

// Priorities understood by the transports. They map to ntfy priority
// header values; the MQTT transport carries them verbatim.
const (
	PriorityDefault = "default"
	PriorityLow     = "low"
)

// Message is one outbound notification.
type Message struct {
	// Time is when the triggering observation happened.
	Time time.Time
	// Title and Body are the human-readable notification content.
	Title string
	Body  string
	// Priority is one of the Priority constants.
	Priority string
	// Tags is a comma-separated hint list for the receiving client.
	Tags string
	// Health routes the message to the health topic instead of the alert
	// topic, keeping liveness chatter out of the alert stream.
	Health bool
}

// Transport delivers messages to one notification backend.
type Transport interface {
	// Send delivers a single message. It may block up to the transport's
	// own timeout and returns an error on failure; it never retries.
	Send(msg Message) error

	// Close releases the transport's resources.
	Close() error
}

// NopTransport discards every message. Used when notifications are
// disabled by configuration.
type NopTransport struct{}

func (NopTransport) Send(Message) error { return nil }
func (NopTransport) Close() error       { return nil }

// Alert builds the dog alert message for one qualifying cycle. The body
// carries the count, a local wall-clock timestamp, and the confidence as a
// whole percentage.
func Alert(now time.Time, dogCount int, confidence float64) Message {
	return Message{
		Time:  now,
		Title: "Dog Alert!",
		Body: fmt.Sprintf("%d dog(s) on couch detected at %s (%.0f%% confidence)",
			dogCount, now.Format("2006-01-02 15:04:05"), confidence*100),
		Priority: PriorityDefault,
		Tags:     "dog",
	}
}
