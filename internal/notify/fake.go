package notify

import "sync"

// FakeTransport records sent messages for test assertions. Unlike the real
// transports it is safe for concurrent use, because the notifier delivers
// from multiple goroutines.
type FakeTransport struct {
	mu sync.Mutex

	// messages contains every message passed to Send, in order.
	messages []Message

	// SendError, if set, is returned by Send (the message is still
	// recorded, so tests can assert on suppressed content).
	SendError error

	// Closed tracks whether Close was called.
	Closed bool
}

// NewFakeTransport creates a FakeTransport for testing.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Send records the message.
func (f *FakeTransport) Send(msg Message) error {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	err := f.SendError
	f.mu.Unlock()
	return err
}

// Close marks the transport as closed.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Sent returns a copy of the recorded messages.
func (f *FakeTransport) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// Reset clears recorded state.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	f.messages = nil
	f.SendError = nil
	f.Closed = false
	f.mu.Unlock()
}
