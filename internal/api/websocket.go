// Package api provides the reporting server's WebSocket progress feed.
package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atlas-desktop/structurelab/pkg/types"
)

// WSMessage is the envelope for every message exchanged over /ws/progress.
type WSMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
}

// Client is one WebSocket connection subscribed to zero or more run IDs.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool
}

// Hub fans BacktestProgress ticks out to clients subscribed to that run's
// topic, and answers ping/subscribe/unsubscribe control messages. The core
// backtester never touches this type directly — ticks reach clients only
// through Hub.Publish (for example forwarded from a Backtester.ProgressFunc);
// the hub only ever reports.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	clients  map[*Client]bool
	channels map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

// NewHub returns an unstarted Hub; call Run in its own goroutine.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives client (un)registration until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for topic := range client.subs {
					delete(h.channels[topic], client)
				}
			}
			h.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// Publish sends progress to every client subscribed to progress.RunID.
func (h *Hub) Publish(progress types.BacktestProgress) {
	payload, err := json.Marshal(progress)
	if err != nil {
		h.logger.Error("failed to marshal progress payload", zap.Error(err))
		return
	}
	msg, err := json.Marshal(WSMessage{Type: "progress", Topic: progress.RunID, Payload: payload, Success: true})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.channels[progress.RunID] {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *Hub) subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[topic] == nil {
		h.channels[topic] = make(map[*Client]bool)
	}
	h.channels[topic][client] = true
	client.mu.Lock()
	client.subs[topic] = true
	client.mu.Unlock()
}

func (h *Hub) unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels[topic], client)
	client.mu.Lock()
	delete(client.subs, topic)
	client.mu.Unlock()
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{id: id, hub: hub, conn: conn, send: make(chan []byte, 64), subs: make(map[string]bool)}
}

// readPump handles ping/subscribe/unsubscribe control messages from the
// client until the connection closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "ping":
			c.reply(WSMessage{Type: "pong", ID: msg.ID, Success: true})
		case "subscribe":
			c.hub.subscribe(c, msg.Topic)
			c.reply(WSMessage{Type: "subscribed", ID: msg.ID, Topic: msg.Topic, Success: true})
		case "unsubscribe":
			c.hub.unsubscribe(c, msg.Topic)
			c.reply(WSMessage{Type: "unsubscribed", ID: msg.ID, Topic: msg.Topic, Success: true})
		}
	}
}

func (c *Client) reply(msg WSMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- raw:
	default:
	}
}

// writePump drains c.send to the socket and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
