package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"crowdwatch/internal/logger"
	ws "crowdwatch/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SnapshotWebsocketHandler handles GET /api/ws. Each viewer receives the latest camera snapshot
// on connect and every snapshot published after that.
func SnapshotWebsocketHandler(hub *ws.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		hub.Serve(conn)
	}
}
