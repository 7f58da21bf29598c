package notify

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatMQTTPayloadAlert(t *testing.T) {
	msg := Alert(time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC), 1, 0.92)

	payload, err := FormatMQTTPayload(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed MQTTPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Alert == nil {
		t.Fatal("expected alert envelope")
	}
	if parsed.Health != nil {
		t.Error("expected no health envelope on an alert")
	}
	if parsed.Alert.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Alert.Timestamp)
	}
	if parsed.Alert.Title != "Dog Alert!" {
		t.Errorf("unexpected title: %s", parsed.Alert.Title)
	}
	if parsed.Alert.Priority != PriorityDefault {
		t.Errorf("unexpected priority: %s", parsed.Alert.Priority)
	}
	if parsed.Alert.Tags != "dog" {
		t.Errorf("unexpected tags: %s", parsed.Alert.Tags)
	}
}

func TestFormatMQTTPayloadHealth(t *testing.T) {
	hb := NewHeartbeat(nil, "dogwatch-test", time.Minute)
	payload, err := FormatMQTTPayload(hb.Message(time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The envelope key must distinguish health from alerts.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["health"]; !ok {
		t.Error("expected health envelope key")
	}
	if _, ok := raw["alert"]; ok {
		t.Error("expected alert envelope to be omitted")
	}
}

func TestFormatMQTTPayloadTimestampIsUTC(t *testing.T) {
	local := time.Date(2026, 2, 3, 16, 30, 0, 0, time.FixedZone("CET", 3600))
	payload, err := FormatMQTTPayload(Alert(local, 1, 0.8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed MQTTPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Alert.Timestamp != "2026-02-03T15:30:00Z" {
		t.Errorf("expected UTC timestamp 2026-02-03T15:30:00Z, got %s", parsed.Alert.Timestamp)
	}
}
