package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client wraps a WebSocket connection.
type Client struct {
	conn *websocket.Conn
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// Hub manages active WebSocket connections per identity key. A user may have
// several live connections (multiple devices or tabs); conversation updates
// fan out to all of them.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{} // identity key -> set of clients
	maxPerUser int
}

// NewHub creates a new Hub with a per-user connection limit.
func NewHub(maxPerUser int) *Hub {
	if maxPerUser <= 0 {
		maxPerUser = 10
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxPerUser: maxPerUser,
	}
}

// Register adds a WebSocket connection for the given identity key.
// If the per-user limit is exceeded, the new connection is closed and nil is returned.
func (h *Hub) Register(userKey string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[userKey]
	if !ok {
		userClients = make(map[*Client]struct{})
		h.clients[userKey] = userClients
	}

	if len(userClients) >= h.maxPerUser {
		log.Printf("websocket: user %s exceeded max connections (%d), closing new connection", userKey, h.maxPerUser)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections for this user"),
			// Zero deadline, best effort.
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	userClients[client] = struct{}{}
	return client
}

// Unregister removes a client for the given identity key and closes the connection.
func (h *Hub) Unregister(userKey string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[userKey]
	if !ok {
		_ = client.conn.Close()
		return
	}

	delete(userClients, client)

	if len(userClients) == 0 {
		delete(h.clients, userKey)
	}

	_ = client.conn.Close()
}

// Send broadcasts a message to all active clients for the identity key.
// The client set is copied under the read lock so writes happen without
// holding it; Register and Unregister mutate the set concurrently.
func (h *Hub) Send(userKey string, msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[userKey]))
	for client := range h.clients[userKey] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("websocket: failed to write message for user %s: %v", userKey, err)
			// Best-effort cleanup: unregister this client.
			h.Unregister(userKey, client)
		}
	}
}

// ActiveConnections returns the number of active WebSocket connections for an identity key.
func (h *Hub) ActiveConnections(userKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userKey])
}
