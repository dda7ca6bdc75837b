package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/courierapp/backend/internal/auth"
	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/identity"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	ws "github.com/courierapp/backend/internal/websocket"
)

// WebSocketHandler handles the /api/v1/ws endpoint for real-time
// conversation updates.
type WebSocketHandler struct {
	pool *pgxpool.Pool
	hub  *ws.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(pool *pgxpool.Pool, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		pool: pool,
		hub:  hub,
	}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// For now, allow all origins. This server is expected to be used
		// behind a reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with the Hub.
// Authentication is handled via query parameter (?token=...) since WebSocket connections
// cannot set custom headers in browsers. The token is validated using the same ValidateToken
// function used by the RequireAuth middleware.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Extract token from query parameter (WebSocket connections can't set headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		// Fallback to Authorization header if query parameter is not provided.
		// This allows testing with tools that can set headers.
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			fields := strings.Fields(authHeader)
			if len(fields) >= 2 && strings.EqualFold(fields[0], "Bearer") {
				token = strings.TrimSpace(strings.Join(fields[1:], " "))
			}
		}
	}

	if token == "" {
		log.Printf("WebSocketHandler: No token provided (neither query parameter nor Authorization header)")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Validate token using the same function as RequireAuth middleware.
	userEmail, err := auth.ValidateToken(token)
	if err != nil {
		log.Printf("WebSocketHandler: Token validation failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userKey := identity.SafeKey(userEmail)
	if _, err := db.GetOrCreateUser(ctx, h.pool, userKey, userEmail, ""); err != nil {
		log.Printf("WebSocketHandler: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection for user %s: %v", userKey, err)
		return
	}

	client := h.hub.Register(userKey, conn)
	if client == nil {
		log.Printf("WebSocketHandler: Connection rejected for user %s (max connections exceeded)", userKey)
		return
	}

	log.Printf("WebSocketHandler: WebSocket connection established for user %s", userKey)

	// Read loop to keep the connection open and detect disconnects.
	go h.readLoop(userKey, client)
}

// readLoop reads messages from the WebSocket until the connection is closed,
// then unregisters the client. The server never acts on inbound frames;
// updates flow one way.
func (h *WebSocketHandler) readLoop(userKey string, client *ws.Client) {
	conn := client.Conn()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(userKey, client)
}
