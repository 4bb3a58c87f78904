package net

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWS upgrades the connection and hands it to the hub, which pumps
// inbound messages until the client goes away.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("websocket upgrade failed: %v", err)
		return
	}
	h.hub.ServeConn(conn)
}
