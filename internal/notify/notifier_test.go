package notify

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNotifierDeliversInBackground(t *testing.T) {
	fake := NewFakeTransport()
	n := NewNotifier(fake)

	n.Notify(Alert(throttleStart, 1, 0.92))
	if err := n.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sent := fake.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(sent))
	}
	if sent[0].Title != "Dog Alert!" {
		t.Errorf("Title: got %q, want %q", sent[0].Title, "Dog Alert!")
	}
	if !fake.Closed {
		t.Error("expected transport to be closed")
	}
}

func TestNotifierSendFailureIsDropped(t *testing.T) {
	fake := NewFakeTransport()
	fake.SendError = errors.New("broker unreachable")
	n := NewNotifier(fake)

	// Must not panic, block, or surface the error to the caller.
	n.Notify(Alert(throttleStart, 1, 0.8))
	n.Notify(Alert(throttleStart.Add(time.Minute), 1, 0.8))
	if err := n.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := len(fake.Sent()); got != 2 {
		t.Errorf("expected 2 attempted sends, got %d", got)
	}
}

// slowTransport blocks Send until released, to prove Close waits for
// in-flight deliveries.
type slowTransport struct {
	release chan struct{}

	mu     sync.Mutex
	sent   int
	closed bool
}

func (s *slowTransport) Send(Message) error {
	<-s.release
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *slowTransport) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func TestNotifierCloseWaitsForInflightSends(t *testing.T) {
	st := &slowTransport{release: make(chan struct{})}
	n := NewNotifier(st)

	n.Notify(Message{Title: "slow"})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(st.release)
	}()

	if err := n.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.sent != 1 {
		t.Errorf("expected Close to wait for the in-flight send, got sent=%d", st.sent)
	}
	if !st.closed {
		t.Error("expected transport closed after sends drained")
	}
}

func TestNopTransport(t *testing.T) {
	var nop NopTransport
	if err := nop.Send(Message{Title: "x"}); err != nil {
		t.Errorf("Send: unexpected error: %v", err)
	}
	if err := nop.Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
}

func TestAlertMessage(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	msg := Alert(at, 2, 0.87)

	if msg.Title != "Dog Alert!" {
		t.Errorf("Title: got %q, want %q", msg.Title, "Dog Alert!")
	}
	want := "2 dog(s) on couch detected at 2026-03-14 09:26:53 (87% confidence)"
	if msg.Body != want {
		t.Errorf("Body: got %q, want %q", msg.Body, want)
	}
	if msg.Priority != PriorityDefault {
		t.Errorf("Priority: got %q, want %q", msg.Priority, PriorityDefault)
	}
	if msg.Tags != "dog" {
		t.Errorf("Tags: got %q, want %q", msg.Tags, "dog")
	}
	if msg.Health {
		t.Error("expected alert to target the alert topic")
	}
	if !msg.Time.Equal(at) {
		t.Errorf("Time: got %v, want %v", msg.Time, at)
	}
}
