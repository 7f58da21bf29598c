// Package status provides a thread-safe status snapshot for the dogwatch
// daemon. It is read by HTTP handlers and mirrored to a file on disk so a
// restarted process resumes from the last published state.
package status

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the detection pipeline.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	// DogDetected and HumanDetected report the most recent cycle's
	// qualifying detections. Both may be true at once; recording is then
	// suppressed by the privacy gate.
	DogDetected   bool
	HumanDetected bool
	// DogCount is the number of qualifying dogs in the most recent cycle.
	DogCount int
	// LastDogSeen is when a dog was last the sole occupant. Zero = never.
	LastDogSeen time.Time
	// GeneratedAt is when the snapshot was published.
	GeneratedAt time.Time
}

// RecordingActive reports whether evidence capture is running. It is
// derived, never stored, so it can not disagree with the detection flags.
func (s Snapshot) RecordingActive() bool {
	return s.DogDetected && !s.HumanDetected
}

// PrivacyMode reports whether human presence is suppressing the pipeline.
func (s Snapshot) PrivacyMode() bool {
	return s.HumanDetected
}

// Publisher holds the current snapshot behind an RWMutex. The detection
// loop is the only writer; any number of goroutines may read.
type Publisher struct {
	mu   sync.RWMutex
	snap Snapshot

	// path is the on-disk mirror of the snapshot. Empty disables mirroring.
	path string
}

// NewPublisher creates a Publisher mirroring snapshots to path.
// An empty path keeps the snapshot in memory only.
func NewPublisher(path string) *Publisher {
	return &Publisher{path: path}
}

// Load seeds the snapshot from the on-disk mirror left by a previous run.
// A missing file is not an error; the process simply starts fresh. The
// loaded state goes stale within one detection cycle, but it carries
// last_dog_seen across restarts.
func (p *Publisher) Load() error {
	if p.path == "" {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read status file: %w", err)
	}
	snap, err := ParseJSON(data)
	if err != nil {
		return fmt.Errorf("parse status file %s: %w", p.path, err)
	}
	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
	return nil
}

// Publish replaces the snapshot wholesale. Readers see either the previous
// snapshot or this one, never a blend. The on-disk mirror is written via
// rename so no reader of the file observes a partial record; a mirror
// write failure is returned after the in-memory snapshot is already
// updated, and the caller decides whether to log it.
func (p *Publisher) Publish(s Snapshot) error {
	p.mu.Lock()
	p.snap = s
	p.mu.Unlock()

	if p.path == "" {
		return nil
	}
	if err := writeFileAtomic(p.path, FormatJSON(s)); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}

// Current returns the most recently published snapshot.
func (p *Publisher) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
