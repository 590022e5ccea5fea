// Package websocket implements the admin live-stats broadcast: a
// register/unregister/broadcast hub adapted from a per-user WebSocket
// notification hub into an operator-only, no-target stats feed (every
// admin connection receives every broadcast).
package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// Message is one frame pushed to every connected admin client.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatsSnapshot is the periodic live-stats payload C9 broadcasts.
type StatsSnapshot struct {
	QueueDepth       int `json:"queue_depth"`
	ActiveMatches    int `json:"active_matches"`
	ServersTotal     int `json:"servers_total"`
	ServersAvailable int `json:"servers_available"`
	SessionsOnline   int `json:"sessions_online"`
}

// Hub tracks every connected admin dashboard client and fans out
// broadcasts to all of them.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run drains register/unregister/broadcast until stopCh is closed.
func (h *Hub) Run(stopCh <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		case <-stopCh:
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	h.log.Info("admin dashboard connected", zap.Int("total_clients", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.log.Info("admin dashboard disconnected", zap.Int("total_clients", len(h.clients)))
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn("admin dashboard send channel full, dropping client")
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// Broadcast pushes msgType/payload to every connected admin client.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.broadcast <- &Message{Type: msgType, Payload: payload}
}

// Register and Unregister expose the hub's channels to Client.
func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }
