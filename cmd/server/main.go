package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/courierapp/backend/internal/api"
	"github.com/courierapp/backend/internal/auth"
	"github.com/courierapp/backend/internal/chat"
	"github.com/courierapp/backend/internal/config"
	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/events"
	"github.com/courierapp/backend/internal/objectstore"
	ws "github.com/courierapp/backend/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(ctx, cfg, pool)

	address := ":" + cfg.Port
	log.Printf("Courier backend server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns a new HTTP handler for the Courier API server.
func NewServer(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool) http.Handler {
	wsHub := ws.NewHub(10)

	// With COURIER_REDIS_ADDR set, conversation updates fan out across
	// instances over Redis pub/sub; otherwise they go straight to the local
	// hub.
	var notifier chat.Notifier
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		bus := events.NewRedisBus(rdb)
		go bus.Forward(ctx, wsHub)
		notifier = bus
		log.Printf("Using Redis notification bus at %s", cfg.RedisAddr)
	} else {
		notifier = ws.NewHubNotifier(wsHub)
	}

	chatService := chat.NewService(dbPool, notifier)

	store, err := objectstore.NewDiskStore(cfg.ObjectDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	conversationsHandler := api.NewConversationsHandler(dbPool, chatService)
	messagesHandler := api.NewMessagesHandler(dbPool, chatService)
	usersHandler := api.NewUsersHandler(dbPool)
	profileHandler := api.NewProfileHandler(dbPool)
	uploadsHandler := api.NewUploadsHandler(dbPool, store)
	wsHandler := api.NewWebSocketHandler(dbPool, wsHub)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/v1/conversations", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			conversationsHandler.GetConversations(w, r)
		case http.MethodPost:
			conversationsHandler.CreateConversation(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Handle /api/v1/conversations/find, /api/v1/conversations/{id} and
	// /api/v1/conversations/{id}/messages patterns.
	mux.Handle("/api/v1/conversations/", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/conversations/")
		if path == "" || path == r.URL.Path {
			http.Error(w, "conversation_id is required", http.StatusBadRequest)
			return
		}

		if path == "find" {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			conversationsHandler.FindConversation(w, r)
			return
		}

		if conversationID, ok := strings.CutSuffix(path, "/messages"); ok && conversationID != "" {
			switch r.Method {
			case http.MethodGet:
				messagesHandler.GetMessages(w, r, conversationID)
			case http.MethodPost:
				messagesHandler.PostMessage(w, r, conversationID)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		if strings.Contains(path, "/") {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}

		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		conversationsHandler.DeleteConversation(w, r, path)
	})))

	mux.Handle("/api/v1/users", auth.RequireAuth(http.HandlerFunc(usersHandler.GetUsers)))
	mux.Handle("/api/v1/profile", auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			profileHandler.GetProfile(w, r)
		case http.MethodPost:
			profileHandler.UpdateProfile(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))
	mux.Handle("/api/v1/uploads", auth.RequireAuth(http.HandlerFunc(uploadsHandler.Upload)))
	mux.Handle("/api/v1/uploads/profile_picture", auth.RequireAuth(http.HandlerFunc(uploadsHandler.GetProfilePicture)))

	// WebSocket handler handles its own authentication via query parameter
	// (since browsers can't set headers on WebSocket connections).
	mux.Handle("/api/v1/ws", http.HandlerFunc(wsHandler.Handle))

	// Uploaded objects are served straight off the store's directory.
	mux.Handle("/objects/", http.StripPrefix("/objects/", http.FileServer(http.Dir(store.BaseDir()))))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Courier API is running")
}
