package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the wire form of a snapshot. The same bytes are served by
// the web API and mirrored to the status file, so the two can never drift.
type StatusJSON struct {
	DogDetected     bool    `json:"dog_detected"`
	HumanDetected   bool    `json:"human_detected"`
	RecordingActive bool    `json:"recording_active"`
	PrivacyMode     bool    `json:"privacy_mode"`
	DogCount        int     `json:"dog_count"`
	LastDogSeen     *string `json:"last_dog_seen"`
	Timestamp       *string `json:"timestamp"`
}

// FormatJSON returns the indented JSON form of a snapshot. Timestamps are
// RFC 3339 in UTC; a dog never seen is null.
func FormatJSON(snap Snapshot) []byte {
	out := StatusJSON{
		DogDetected:     snap.DogDetected,
		HumanDetected:   snap.HumanDetected,
		RecordingActive: snap.RecordingActive(),
		PrivacyMode:     snap.PrivacyMode(),
		DogCount:        snap.DogCount,
		LastDogSeen:     formatTime(snap.LastDogSeen),
		Timestamp:       formatTime(snap.GeneratedAt),
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}

// ParseJSON decodes bytes produced by FormatJSON back into a snapshot.
// The derived fields are ignored; they are recomputed from the flags.
func ParseJSON(data []byte) (Snapshot, error) {
	var in StatusJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		DogDetected:   in.DogDetected,
		HumanDetected: in.HumanDetected,
		DogCount:      in.DogCount,
	}
	var err error
	if snap.LastDogSeen, err = parseTime(in.LastDogSeen); err != nil {
		return Snapshot{}, fmt.Errorf("last_dog_seen: %w", err)
	}
	if snap.GeneratedAt, err = parseTime(in.Timestamp); err != nil {
		return Snapshot{}, fmt.Errorf("timestamp: %w", err)
	}
	return snap, nil
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func parseTime(s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, *s)
}
