// Package messaging pushes record events to connected admin dashboards.
package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

// Event announces a newly created record.
type Event struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Course    string `json:"course,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher accepts events for delivery. Publish never blocks.
type Publisher interface {
	Publish(Event)
}

// Client is one connected dashboard.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans events out to every registered client.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	interval   time.Duration
	logger     *logging.ChanneledLogger
	mu         sync.RWMutex
}

// NewHub creates a hub that sends a keepalive to every client each interval.
func NewHub(interval time.Duration, logger *logging.ChanneledLogger) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		interval:   interval,
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.HTTP().Debug("Feed client registered", "clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.HTTP().Debug("Feed client unregistered", "clients", count)

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-ticker.C:
			// nil asks each writer for a ping frame.
			h.fanOut(nil)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// fanOut drops the message for clients whose buffer is full.
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
		}
	}
}

// Publish queues an event. Events are dropped when the queue is full or the
// hub has stopped.
func (h *Hub) Publish(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.HTTP().Error("Failed to marshal feed event", "error", err.Error())
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		h.logger.HTTP().Warn("Feed queue full, dropping event", "type", event.Type, "id", event.ID)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers conn and pumps messages until the peer disconnects or the
// hub stops. It blocks; callers run it on the request goroutine.
func (h *Hub) Serve(conn *websocket.Conn) {
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer), hub: h}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	client.readPump()
}

// readPump discards inbound frames; it exists to process control frames and
// notice disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if message == nil {
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
