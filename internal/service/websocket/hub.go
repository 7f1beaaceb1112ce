// Package websocket pushes published snapshots to browser viewers.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crowdwatch/internal/dto"
	"crowdwatch/internal/logger"
	"crowdwatch/internal/model"
	"crowdwatch/internal/service/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// HubService fans snapshot messages out to connected viewers. A viewer that cannot keep up is
// disconnected instead of slowing the others down.
type HubService struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	latest     []byte
	mutex      sync.RWMutex
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewHubService creates a hub. Run must be started before viewers attach.
func NewHubService(logger *logger.Logger, m *metrics.Metrics) *HubService {
	return &HubService{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then disconnects everyone.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				h.metrics.WebSocketConnected(-1)
			}
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = true
			if h.latest != nil {
				c.send <- h.latest
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.metrics.WebSocketConnected(1)
			h.logger.Info("Viewer %s connected. Total: %d", c.id, total)

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.metrics.WebSocketConnected(-1)
			h.logger.Info("Viewer %s disconnected. Total: %d", c.id, total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			h.latest = message
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Warning("Viewer %s is too slow, dropping it", c.id)
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish queues a snapshot for every viewer. It never blocks; when the queue is full the
// snapshot is skipped since a newer one follows on the next frame.
func (h *HubService) Publish(snap model.Snapshot) {
	message, err := json.Marshal(dto.SnapshotMessage{Type: "snapshot", Snapshot: snap})
	if err != nil {
		h.logger.Error("Failed to encode snapshot: %v", err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Debug("Snapshot broadcast queue full, skipping frame %d", snap.FrameSeq)
	}
}

// Serve runs a viewer connection until it closes or the hub stops. The connection is closed on
// return.
func (h *HubService) Serve(conn *websocket.Conn) {
	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendBuffer)}
	defer conn.Close()

	select {
	case h.register <- c:
	case <-h.done:
		return
	}

	go h.writePump(c)
	h.readPump(c)

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// readPump discards viewer messages and keeps the read deadline fresh via pongs.
func (h *HubService) readPump(c *client) {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warning("Viewer %s read error: %v", c.id, err)
			}
			return
		}
	}
}

func (h *HubService) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("Error sending message to viewer %s: %v", c.id, err)
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// GetClientCount returns the number of connected viewers.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
