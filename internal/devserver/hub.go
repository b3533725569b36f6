package devserver

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// client is one live real-time connection.
type client struct {
	userID string
	conn   *websocket.Conn
	wmu    sync.Mutex // serializes writes to conn
}

func (c *client) writeFrame(frameType string, data any) error {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal frame data: %w", err)
		}
		raw = encoded
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteJSON(wire.Frame{Type: frameType, Data: raw})
}

// Hub maintains the set of connected clients, one per user. A second
// connection for the same user supersedes the first.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*client), logger: logger}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	prev := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()

	if prev != nil {
		_ = prev.conn.Close()
	}
	h.logger.Info("client connected", zap.String("user_id", c.userID))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
	h.logger.Info("client disconnected", zap.String("user_id", c.userID))
}

// IsOnline reports whether the user has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// SendToUser delivers a frame to a specific user's connection.
func (h *Hub) SendToUser(userID, frameType string, data any) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("user not connected: %s", userID)
	}
	return c.writeFrame(frameType, data)
}
