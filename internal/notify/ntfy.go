package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ntfy publishes by POSTing the body to <server>/<topic> with metadata in
// headers. See https://docs.ntfy.sh/publish/.
const ntfySendTimeout = 10 * time.Second

// NtfyTransport delivers messages to an ntfy server over HTTP.
type NtfyTransport struct {
	http        *resty.Client
	topic       string
	healthTopic string
}

// NewNtfyTransport creates a transport posting alerts to topic and health
// messages to healthTopic on the given server, e.g. "https://ntfy.sh".
func NewNtfyTransport(server, topic, healthTopic string) *NtfyTransport {
	r := resty.New()
	r.SetBaseURL(strings.TrimRight(server, "/"))
	// One bounded attempt per message; retrying a dropped alert would
	// deliver it stale.
	r.SetTimeout(ntfySendTimeout)
	r.SetRetryCount(0)

	return &NtfyTransport{
		http:        r,
		topic:       topic,
		healthTopic: healthTopic,
	}
}

// Send posts one message. Alerts go to the alert topic, health messages to
// the health topic.
func (t *NtfyTransport) Send(msg Message) error {
	topic := t.topic
	if msg.Health {
		topic = t.healthTopic
	}

	resp, err := t.http.R().
		SetHeader("Title", msg.Title).
		SetHeader("Priority", msg.Priority).
		SetHeader("Tags", msg.Tags).
		SetBody(msg.Body).
		Post("/" + topic)
	if err != nil {
		return fmt.Errorf("post to %s: %w", topic, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post to %s: %s", topic, resp.Status())
	}
	return nil
}

// Close releases nothing; the HTTP client holds no persistent connection
// state worth tearing down.
func (t *NtfyTransport) Close() error {
	return nil
}
