package notify

import (
	"sync"
	"time"

	"WaveSplit/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Hub fans notifications out to every connected websocket client. The UI
// shell subscribes once and renders each notification as a toast.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	logger.Debug("notification client connected", logger.Int("clients", len(h.conns)))
}

// Unregister removes a connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client with a going-away frame. Called on server
// shutdown; the hub stays usable, later notifications just reach no one.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range h.conns {
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		delete(h.conns, conn)
	}
}

// Notify broadcasts the notification as JSON. Dead connections are dropped
// from the set; delivery is best effort.
func (h *Hub) Notify(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(n); err != nil {
			logger.Warn("dropping notification client", logger.ErrorField(err))
			delete(h.conns, conn)
			conn.Close()
		}
	}
}
