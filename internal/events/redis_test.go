package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/courierapp/backend/internal/chat"
	ws "github.com/courierapp/backend/internal/websocket"
)

// newTestRedis starts a Redis test container and returns a connected
// client. The container is cleaned up when the test finishes.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	uri, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestRedisBus_ForwardDeliversToHub(t *testing.T) {
	rdb := newTestRedis(t)

	bus := NewRedisBus(rdb)
	hub := ws.NewHub(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Forward(ctx, hub)

	// Register a real client on the hub so delivery goes end to end.
	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer server.Close()

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer clientConn.Close()
	hub.Register("a-x-com", <-serverConns)

	event := chat.UpdateEvent{
		Type:           chat.EventConversationUpdated,
		ConversationID: "conversation_abc",
	}

	received := make(chan []byte, 1)
	go func() {
		_, payload, err := clientConn.ReadMessage()
		if err == nil {
			received <- payload
		}
	}()

	// The forwarder's subscription comes up asynchronously; keep publishing
	// until the client hears it.
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case payload := <-received:
			var got chat.UpdateEvent
			if err := json.Unmarshal(payload, &got); err != nil {
				t.Fatalf("Failed to decode forwarded event: %v", err)
			}
			if got.Type != chat.EventConversationUpdated {
				t.Errorf("Expected type %q, got %q", chat.EventConversationUpdated, got.Type)
			}
			if got.ConversationID != "conversation_abc" {
				t.Errorf("Expected conversation_abc, got %q", got.ConversationID)
			}
			return
		case <-deadline:
			t.Fatal("Published event never reached the hub client")
		case <-ticker.C:
			bus.NotifyConversationUpdated("a-x-com", event)
		}
	}
}

func TestRedisBus_ForwardIsKeyed(t *testing.T) {
	rdb := newTestRedis(t)

	bus := NewRedisBus(rdb)
	hub := ws.NewHub(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Forward(ctx, hub)

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer server.Close()

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer clientConn.Close()
	hub.Register("a-x-com", <-serverConns)

	otherEvent := chat.UpdateEvent{Type: chat.EventConversationUpdated, ConversationID: "conversation_other"}
	mineEvent := chat.UpdateEvent{Type: chat.EventConversationUpdated, ConversationID: "conversation_mine"}

	received := make(chan []byte, 4)
	go func() {
		for {
			_, payload, err := clientConn.ReadMessage()
			if err != nil {
				return
			}
			received <- payload
		}
	}()

	// Events for another user must not reach this client; the first one it
	// sees has to be its own. Publish the other user's event ahead of ours
	// on every tick.
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case payload := <-received:
			var got chat.UpdateEvent
			if err := json.Unmarshal(payload, &got); err != nil {
				t.Fatalf("Failed to decode forwarded event: %v", err)
			}
			if got.ConversationID != "conversation_mine" {
				t.Fatalf("Received another user's event: %q", got.ConversationID)
			}
			return
		case <-deadline:
			t.Fatal("Published event never reached the hub client")
		case <-ticker.C:
			bus.NotifyConversationUpdated("b-y-com", otherEvent)
			bus.NotifyConversationUpdated("a-x-com", mineEvent)
		}
	}
}
