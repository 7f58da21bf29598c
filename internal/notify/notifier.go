package notify

import (
	"log"
	"sync"
)

// Notifier dispatches messages asynchronously so a slow or unreachable
// backend never stalls the detection cycle. Each send runs on its own
// goroutine, fire-and-forget.
type Notifier struct {
	transport Transport
	wg        sync.WaitGroup
}

// NewNotifier creates a notifier over the given transport.
func NewNotifier(transport Transport) *Notifier {
	return &Notifier{transport: transport}
}

// Notify sends msg in the background. Delivery failure is logged and the
// message is dropped; there is no retry and no queue.
func (n *Notifier) Notify(msg Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.transport.Send(msg); err != nil {
			log.Printf("notify: send %q failed: %v", msg.Title, err)
		}
	}()
}

// Close waits for in-flight sends to finish, then closes the transport.
func (n *Notifier) Close() error {
	n.wg.Wait()
	return n.transport.Close()
}
