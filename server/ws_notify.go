package server

import (
	"net/http"

	"WaveSplit/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotificationsHandler upgrades the connection and subscribes it to
// workflow notifications. The connection stays registered until the client
// goes away.
func (h *APIHandler) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	h.hub.Register(conn)

	// Drain reads so close frames and pings are processed; the hub owns
	// all writes.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
