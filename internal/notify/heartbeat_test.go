package notify

import (
	"context"
	"testing"
	"time"
)

// waitForMessages polls the fake transport until want messages arrived or
// the deadline passes.
func waitForMessages(t *testing.T, fake *FakeTransport, want int) []Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sent := fake.Sent(); len(sent) >= want {
			return sent
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", want, len(fake.Sent()))
	return nil
}

func TestHeartbeatMessage(t *testing.T) {
	hb := NewHeartbeat(nil, "dogwatch-abc123", 30*time.Minute)
	msg := hb.Message(time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local))

	if msg.Title != "DogWatch Heartbeat" {
		t.Errorf("Title: got %q, want %q", msg.Title, "DogWatch Heartbeat")
	}
	want := "DogWatch dogwatch-abc123 running as of 2026-03-14 09:26:53"
	if msg.Body != want {
		t.Errorf("Body: got %q, want %q", msg.Body, want)
	}
	if msg.Priority != PriorityLow {
		t.Errorf("Priority: got %q, want %q", msg.Priority, PriorityLow)
	}
	if !msg.Health {
		t.Error("expected heartbeat to target the health topic")
	}
	if msg.Tags != "heartbeat" {
		t.Errorf("Tags: got %q, want heartbeat", msg.Tags)
	}
}

func TestHeartbeatSendsImmediatelyOnStart(t *testing.T) {
	fake := NewFakeTransport()
	n := NewNotifier(fake)
	hb := NewHeartbeat(n, "dogwatch-test", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	sent := waitForMessages(t, fake, 1)
	if !sent[0].Health {
		t.Error("expected startup heartbeat on the health topic")
	}

	cancel()
	<-done
	n.Close()
}

func TestHeartbeatTicks(t *testing.T) {
	fake := NewFakeTransport()
	n := NewNotifier(fake)
	hb := NewHeartbeat(n, "dogwatch-test", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hb.Run(ctx)
		close(done)
	}()

	sent := waitForMessages(t, fake, 3)
	cancel()
	<-done
	n.Close()

	for i, msg := range sent {
		if !msg.Health {
			t.Errorf("message %d: expected health routing", i)
		}
		if msg.Title != "DogWatch Heartbeat" {
			t.Errorf("message %d: unexpected title %q", i, msg.Title)
		}
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	fake := NewFakeTransport()
	n := NewNotifier(fake)
	hb := NewHeartbeat(n, "dogwatch-test", 0)

	// Run must return immediately when disabled.
	hb.Run(context.Background())
	n.Close()

	if got := len(fake.Sent()); got != 0 {
		t.Errorf("expected no heartbeats when disabled, got %d", got)
	}
}
