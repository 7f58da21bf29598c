package web

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The daemon serves a trusted LAN; browsers on other hosts are the
	// normal clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans status updates out to websocket subscribers. Every detection
// cycle's status payload is broadcast, so a dashboard sees state changes
// without polling /api/status.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	// mu guards clients for ClientCount; all mutation happens on the
	// Run goroutine.
	mu sync.RWMutex
}

// NewHub creates a Hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set until ctx is done, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("web: client connected, total %d", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("web: client disconnected, total %d", total)

		case message := <-h.broadcast:
			var dead []*websocket.Conn
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					dead = append(dead, client)
				}
			}
			if len(dead) > 0 {
				h.mu.Lock()
				for _, client := range dead {
					delete(h.clients, client)
					client.Close()
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast queues one payload for fan-out. When the hub is saturated the
// payload is dropped; the next cycle supersedes it anyway.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and subscribes the connection until the
// peer hangs up. Subscribers only listen; inbound frames are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade: %v", err)
		return
	}
	conn.SetReadLimit(512)

	h.register <- conn
	defer func() { h.unregister <- conn }()

	// Dead peers also surface as write failures on the next broadcast,
	// so no ping loop is needed at a one-second publish cadence.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
