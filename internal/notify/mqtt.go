package notify

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTTransport publishes notifications to an MQTT broker, for homes where
// the alert consumer is an automation bus rather than a phone app.
type MQTTTransport struct {
	client      paho.Client
	topic       string
	healthTopic string
}

// NewMQTTTransport creates a transport connected to the given broker.
func NewMQTTTransport(broker, clientID, topic, healthTopic string) (*MQTTTransport, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &MQTTTransport{
		client:      client,
		topic:       topic,
		healthTopic: healthTopic,
	}, nil
}

// Send publishes one message as JSON.
func (t *MQTTTransport) Send(msg Message) error {
	payload, err := FormatMQTTPayload(msg)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	topic := t.topic
	if msg.Health {
		topic = t.healthTopic
	}

	// QoS 0 (at-most-once), never retained: a missed alert must not come
	// back later as a stale one.
	token := t.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() error {
	t.client.Disconnect(1000) // 1 second timeout
	return nil
}

// MQTTPayload is the JSON envelope published to the broker. Alerts nest
// under "alert", health messages under "health", so bus consumers can
// subscribe by shape as well as by topic.
type MQTTPayload struct {
	Alert  *MQTTInner `json:"alert,omitempty"`
	Health *MQTTInner `json:"health,omitempty"`
}

// MQTTInner carries the notification details.
type MQTTInner struct {
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Priority  string `json:"priority"`
	Tags      string `json:"tags,omitempty"`
}

// FormatMQTTPayload creates the JSON payload for a message.
func FormatMQTTPayload(msg Message) ([]byte, error) {
	inner := &MQTTInner{
		Timestamp: msg.Time.UTC().Format(time.RFC3339),
		Title:     msg.Title,
		Message:   msg.Body,
		Priority:  msg.Priority,
		Tags:      msg.Tags,
	}
	payload := MQTTPayload{}
	if msg.Health {
		payload.Health = inner
	} else {
		payload.Alert = inner
	}
	return json.Marshal(payload)
}
