// Package realtime pushes marketplace events to connected browsers.
//
// Clients attach over WebSocket with their user ID and receive two kinds
// of traffic: broadcasts visible to everyone (new jobs, status changes)
// and private notifications addressed to a single user (proposal received,
// counteroffer outcome). Delivery is at-most-once and best-effort; nothing
// here persists or retries.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mbd888/jobchain/internal/metrics"
)

// normalCloseCodes are WebSocket close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Allow non-browser clients
		}
		// Allow same-host connections
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// Event is the wire envelope for everything the hub sends.
type Event struct {
	Name      string      `json:"event"`
	Timestamp time.Time   `json:"ts"`
	Data      interface{} `json:"data"`
}

// envelope pairs an event with an optional target user. An empty UserID
// means broadcast to everyone.
type envelope struct {
	event  *Event
	userID string
}

// Client represents one WebSocket connection. A user may hold several
// (multiple tabs); each gets its own send queue.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// MaxClients is the maximum number of concurrent WebSocket connections.
const MaxClients = 10000

// Hub manages all WebSocket connections and routes events to them.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	outbound   chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{} // closed when Run exits; prevents upgrade race
	maxClients int

	// Stats
	totalEvents  atomic.Int64
	totalClients atomic.Int64
	peakClients  atomic.Int64
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		outbound:   make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
		maxClients: MaxClients,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("realtime hub shutting down, closing client connections")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send) // writePump sends CloseMessage on closed channel
				h.drop(client)
			}
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(0)
			h.logger.Info("realtime hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if client.userID != "" {
				room := h.byUser[client.userID]
				if room == nil {
					room = make(map[*Client]bool)
					h.byUser[client.userID] = room
				}
				room[client] = true
			}
			h.totalClients.Add(1)
			if current := int64(len(h.clients)); current > h.peakClients.Load() {
				h.peakClients.Store(current)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client connected", "user", client.userID, "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client disconnected", "user", client.userID, "total", n)

		case env := <-h.outbound:
			h.totalEvents.Add(1)
			payload := h.serialize(env.event)

			h.mu.RLock()
			var targets []*Client
			if env.userID == "" {
				for client := range h.clients {
					targets = append(targets, client)
				}
			} else {
				for client := range h.byUser[env.userID] {
					targets = append(targets, client)
				}
			}
			var slow []*Client
			for _, client := range targets {
				select {
				case client.send <- payload:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			// Remove slow clients under write lock
			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						close(client.send)
						h.drop(client)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// drop removes a client from both indexes. Caller must hold h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	if client.userID != "" {
		if room := h.byUser[client.userID]; room != nil {
			delete(room, client)
			if len(room) == 0 {
				delete(h.byUser, client.userID)
			}
		}
	}
}

func (h *Hub) serialize(event *Event) []byte {
	data, _ := json.Marshal(event)
	return data
}

// Broadcast sends an event to every connected client. Never blocks; if the
// hub's queue is full the event is dropped and logged.
func (h *Hub) Broadcast(name string, data interface{}) {
	h.enqueue(envelope{event: &Event{Name: name, Timestamp: time.Now(), Data: data}})
}

// NotifyUser sends an event to all connections belonging to one user.
// Fire-and-forget: unknown or offline users are silently skipped.
func (h *Hub) NotifyUser(userID, name string, data interface{}) {
	if userID == "" {
		return
	}
	h.enqueue(envelope{
		event:  &Event{Name: name, Timestamp: time.Now(), Data: data},
		userID: userID,
	})
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.outbound <- env:
	default:
		h.logger.Warn("realtime queue full, dropping event", "event", env.event.Name)
	}
}

// Stats returns hub statistics.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"connectedClients": len(h.clients),
		"connectedUsers":   len(h.byUser),
		"totalEvents":      h.totalEvents.Load(),
		"totalClients":     h.totalClients.Load(),
		"peakClients":      h.peakClients.Load(),
	}
}

// HandleWebSocket upgrades HTTP to WebSocket. The user_id query parameter
// joins the connection to that user's room for targeted notifications.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Reject upgrades after the hub has stopped to prevent orphaned connections.
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	// Enforce connection limit
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	if n >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: r.URL.Query().Get("user_id"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// detach hands the connection back to the hub. After Run has exited nobody
// receives on unregister, so a stopped hub is not waited on.
func (c *Client) detach() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// readPump drains inbound frames so pings and close handshakes work.
// The protocol is one-directional; client messages are discarded.
func (c *Client) readPump() {
	defer func() {
		c.detach()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			break
		}
	}
}

// writePump writes messages to WebSocket
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}
