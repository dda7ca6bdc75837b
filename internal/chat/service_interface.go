package chat

import (
	"context"

	"github.com/courierapp/backend/internal/identity"
	"github.com/courierapp/backend/internal/models"
)

// ChatService is the write and read path for conversations and messages.
// Multi-step operations are sequential chains of store round trips with no
// automatic retry and no compensating rollback; a failure midway surfaces to
// the caller and any writes that already landed stay.
type ChatService interface {
	// CreateConversation starts a conversation with the first message and
	// returns the minted conversation id.
	CreateConversation(ctx context.Context, session identity.Session, counterpartyEmail, counterpartyName string, first models.MessageContent) (string, error)

	// SendMessage appends a message to an existing conversation and updates
	// both participants' latest-message snapshots.
	SendMessage(ctx context.Context, session identity.Session, conversationID, counterpartyEmail, counterpartyName string, content models.MessageContent) (*models.Message, error)

	// ListConversations returns the user's conversation index in storage
	// order; callers wanting recency order sort by the snapshot date.
	ListConversations(ctx context.Context, userKey string) ([]*models.ConversationSummary, error)

	// ListMessages returns a conversation's decoded message log.
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)

	// FindExistingConversation resolves the conversation between the session
	// user and the counterparty, or db.ErrConversationNotFound when the
	// caller should take the creation path.
	FindExistingConversation(ctx context.Context, session identity.Session, counterpartyEmail string) (string, error)

	// MarkRead flips the read flag on the user's own latest-message snapshot.
	MarkRead(ctx context.Context, userKey, conversationID string) error

	// DeleteConversation hides the conversation from the requesting user's
	// index only; the counterparty's entry and the message log are untouched.
	DeleteConversation(ctx context.Context, userKey, conversationID string) error
}

// UpdateEvent is pushed to a participant when one of their conversations
// changes.
type UpdateEvent struct {
	Type           string               `json:"type"`
	ConversationID string               `json:"conversation_id"`
	Latest         models.LatestMessage `json:"latest_message"`
}

// Notifier delivers UpdateEvents to a user's live sessions. Delivery is best
// effort; a failed or absent notification never fails the write path.
type Notifier interface {
	NotifyConversationUpdated(userKey string, event UpdateEvent)
}
