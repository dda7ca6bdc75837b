package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/courierapp/backend/internal/chat"
	ws "github.com/courierapp/backend/internal/websocket"
	"github.com/redis/go-redis/v9"
)

// Channel prefix for per-user conversation update notifications.
// chat:notify:{identityKey} carries the JSON-encoded chat.UpdateEvent.
const notifyPrefix = "chat:notify:"

// RedisBus fans conversation updates out across server instances. Publishing
// goes to the user's channel; every instance subscribes to the whole prefix
// and forwards matching events to its local WebSocket hub, so a user
// connected to instance A still hears about a message written through
// instance B.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates a bus on an established Redis client.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// NotifyConversationUpdated publishes the event to the user's notification
// channel. Best effort: a publish failure is logged, never propagated, and
// the write that triggered it stays committed.
func (b *RedisBus) NotifyConversationUpdated(userKey string, event chat.UpdateEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: failed to encode update event for user %s: %v", userKey, err)
		return
	}

	if err := b.rdb.Publish(context.Background(), notifyPrefix+userKey, payload).Err(); err != nil {
		log.Printf("events: failed to publish update for user %s: %v", userKey, err)
	}
}

// Forward subscribes to all notification channels and pushes each event to
// the local hub until ctx is cancelled. Run it in its own goroutine.
func (b *RedisBus) Forward(ctx context.Context, hub *ws.Hub) {
	pubsub := b.rdb.PSubscribe(ctx, notifyPrefix+"*")
	defer func() {
		_ = pubsub.Close()
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userKey := strings.TrimPrefix(msg.Channel, notifyPrefix)
			if userKey == "" || userKey == msg.Channel {
				continue
			}
			hub.Send(userKey, []byte(msg.Payload))
		}
	}
}
