package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

// envelope is the single named event pushed to every client.
type envelope struct {
	Event string            `json:"event"`
	Data  models.AlertEvent `json:"data"`
}

const eventName = "inventory_alert"

// Hub fans alert events out to every connected client. Delivery is
// best-effort and fire-and-forget: no acknowledgement, no retry, and a
// connection that errors on write is dropped on the spot.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]bool),
		logger: logger,
	}
}

// Add registers a client connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	h.logger.Infof("WebSocket client connected (total: %d)", len(h.conns))
}

// Remove drops a client connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		delete(h.conns, conn)
		h.logger.Infof("WebSocket client disconnected (remaining: %d)", len(h.conns))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast pushes one alert event to all connected clients.
func (h *Hub) Broadcast(event models.AlertEvent) {
	msg := envelope{Event: eventName, Data: event}

	h.mu.Lock()
	defer h.mu.Unlock()
	targets := len(h.conns)
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Errorf("WebSocket write failed, dropping connection: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
	h.logger.Debugf("Broadcast %s %s to %d client(s)", event.Category, event.ID, targets)
}
