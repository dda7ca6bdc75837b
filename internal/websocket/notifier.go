package websocket

import (
	"encoding/json"
	"log"

	"github.com/courierapp/backend/internal/chat"
)

// HubNotifier delivers conversation updates straight to this instance's hub.
// It is the single-instance deployment's notifier; multi-instance setups
// route through the Redis bus instead.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a chat.Notifier backed by the given hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyConversationUpdated pushes the event to all of the user's live
// connections. Failures are logged and swallowed; notification is best
// effort and never fails the write path.
func (n *HubNotifier) NotifyConversationUpdated(userKey string, event chat.UpdateEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to encode update event for user %s: %v", userKey, err)
		return
	}
	n.hub.Send(userKey, payload)
}
