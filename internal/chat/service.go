package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/identity"
	"github.com/courierapp/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationIDPrefix is the stable prefix of every conversation id. The id
// is derived from the first message's id and reused for all subsequent
// messages between the pair.
const ConversationIDPrefix = "conversation_"

// EventConversationUpdated is the UpdateEvent type for new or changed
// latest-message snapshots.
const EventConversationUpdated = "conversation_updated"

// Service implements ChatService on top of the Postgres-backed message log
// and conversation index.
type Service struct {
	pool     *pgxpool.Pool
	notifier Notifier
}

// NewService creates a new chat Service. notifier may be nil when no
// real-time delivery is wired.
func NewService(pool *pgxpool.Pool, notifier Notifier) *Service {
	return &Service{
		pool:     pool,
		notifier: notifier,
	}
}

// CreateConversation mints a conversation id from the first message's id and
// performs the creation chain: conversation row, sender's index entry, the
// counterparty's index entry, then the first message append. The steps are
// sequential; if one fails the earlier writes stay and the error surfaces.
// Retrying the whole operation is safe only when the caller reuses the same
// message id, which this method does not do (it mints a fresh one), so
// callers retrying after a partial failure may leave an orphaned entry
// behind. That matches the contract: no rollback, no cleanup.
func (s *Service) CreateConversation(ctx context.Context, session identity.Session, counterpartyEmail, counterpartyName string, first models.MessageContent) (string, error) {
	counterpartyKey := identity.SafeKey(counterpartyEmail)

	messageID := uuid.New().String()
	conversationID := ConversationIDPrefix + messageID
	sentAt := time.Now().UTC()

	message := &models.Message{
		ID:         messageID,
		SenderKey:  session.Key,
		SenderName: session.DisplayName,
		SentAt:     sentAt,
		Content:    first,
	}

	if err := db.CreateConversation(ctx, s.pool, conversationID, session.Key, counterpartyKey); err != nil {
		return "", fmt.Errorf("create conversation %s: %w", conversationID, err)
	}

	latest := models.LatestMessage{
		Date:   sentAt,
		Text:   first.PreviewText(),
		IsRead: false,
	}

	senderEntry := &models.ConversationSummary{
		ConversationID: conversationID,
		UserKey:        session.Key,
		OtherUserKey:   counterpartyKey,
		OtherUserName:  counterpartyName,
		Latest:         latest,
	}
	if err := db.UpsertSummary(ctx, s.pool, senderEntry); err != nil {
		return "", fmt.Errorf("create conversation %s: sender index: %w", conversationID, err)
	}

	counterpartyEntry := &models.ConversationSummary{
		ConversationID: conversationID,
		UserKey:        counterpartyKey,
		OtherUserKey:   session.Key,
		OtherUserName:  session.DisplayName,
		Latest:         latest,
	}
	if err := db.UpsertSummary(ctx, s.pool, counterpartyEntry); err != nil {
		return "", fmt.Errorf("create conversation %s: counterparty index: %w", conversationID, err)
	}

	if err := db.AppendMessage(ctx, s.pool, conversationID, message); err != nil {
		return "", fmt.Errorf("create conversation %s: first message: %w", conversationID, err)
	}

	s.notifyBoth(session.Key, counterpartyKey, conversationID, latest)

	return conversationID, nil
}

// SendMessage appends to the log, then updates the sender's and the
// counterparty's latest-message snapshots. The three writes have no
// atomicity across each other; a reader between steps sees the new message
// with a stale summary, and the two summaries converge only after both
// upserts complete.
func (s *Service) SendMessage(ctx context.Context, session identity.Session, conversationID, counterpartyEmail, counterpartyName string, content models.MessageContent) (*models.Message, error) {
	counterpartyKey := identity.SafeKey(counterpartyEmail)
	sentAt := time.Now().UTC()

	message := &models.Message{
		ID:         uuid.New().String(),
		SenderKey:  session.Key,
		SenderName: session.DisplayName,
		SentAt:     sentAt,
		Content:    content,
	}

	if err := db.AppendMessage(ctx, s.pool, conversationID, message); err != nil {
		return nil, fmt.Errorf("send to %s: %w", conversationID, err)
	}

	latest := models.LatestMessage{
		Date:   sentAt,
		Text:   content.PreviewText(),
		IsRead: false,
	}

	senderEntry := &models.ConversationSummary{
		ConversationID: conversationID,
		UserKey:        session.Key,
		OtherUserKey:   counterpartyKey,
		OtherUserName:  counterpartyName,
		Latest:         latest,
	}
	if err := db.UpsertSummary(ctx, s.pool, senderEntry); err != nil {
		return nil, fmt.Errorf("send to %s: sender index: %w", conversationID, err)
	}

	counterpartyEntry := &models.ConversationSummary{
		ConversationID: conversationID,
		UserKey:        counterpartyKey,
		OtherUserKey:   session.Key,
		OtherUserName:  session.DisplayName,
		Latest:         latest,
	}
	if err := db.UpsertSummary(ctx, s.pool, counterpartyEntry); err != nil {
		return nil, fmt.Errorf("send to %s: counterparty index: %w", conversationID, err)
	}

	s.notifyBoth(session.Key, counterpartyKey, conversationID, latest)

	return message, nil
}

// ListConversations returns the index as stored; no recency re-sort.
func (s *Service) ListConversations(ctx context.Context, userKey string) ([]*models.ConversationSummary, error) {
	return db.GetSummaries(ctx, s.pool, userKey)
}

// ListMessages returns the decoded log with malformed records dropped.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return db.ListMessages(ctx, s.pool, conversationID)
}

// FindExistingConversation scans the counterparty's index for an entry
// pointing back at the session user. At most one such conversation should
// exist; the first match wins. Index entries are written for counterparties
// who have not registered yet, so when the counterparty has no user row the
// caller's own index is scanned before concluding there is no conversation;
// otherwise an existing pair would resolve to not-found and the caller
// would mint a duplicate.
func (s *Service) FindExistingConversation(ctx context.Context, session identity.Session, counterpartyEmail string) (string, error) {
	counterpartyKey := identity.SafeKey(counterpartyEmail)

	conversationID, err := s.scanIndex(ctx, counterpartyKey, session.Key)
	if err == nil {
		return conversationID, nil
	}
	if !errors.Is(err, db.ErrUserNotFound) {
		return "", err
	}

	conversationID, err = s.scanIndex(ctx, session.Key, counterpartyKey)
	if errors.Is(err, db.ErrUserNotFound) {
		return "", db.ErrConversationNotFound
	}
	return conversationID, err
}

// scanIndex looks through userKey's index for the entry pointing at
// otherKey. db.ErrUserNotFound passes through untranslated so the caller
// can tell an unknown user apart from a known user without the
// conversation.
func (s *Service) scanIndex(ctx context.Context, userKey, otherKey string) (string, error) {
	summaries, err := db.GetSummaries(ctx, s.pool, userKey)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return "", err
		}
		return "", fmt.Errorf("resolve conversation with %s: %w", otherKey, err)
	}

	for _, summary := range summaries {
		if summary.OtherUserKey == otherKey {
			return summary.ConversationID, nil
		}
	}

	return "", db.ErrConversationNotFound
}

// MarkRead marks the caller's own snapshot read. The counterparty's copy is
// their own business.
func (s *Service) MarkRead(ctx context.Context, userKey, conversationID string) error {
	return db.MarkSummaryRead(ctx, s.pool, userKey, conversationID)
}

// DeleteConversation is a per-participant hide: it removes only the
// requesting user's index entry. The counterparty's entry and the message
// log persist.
func (s *Service) DeleteConversation(ctx context.Context, userKey, conversationID string) error {
	return db.RemoveSummary(ctx, s.pool, userKey, conversationID)
}

func (s *Service) notifyBoth(senderKey, counterpartyKey, conversationID string, latest models.LatestMessage) {
	if s.notifier == nil {
		return
	}

	event := UpdateEvent{
		Type:           EventConversationUpdated,
		ConversationID: conversationID,
		Latest:         latest,
	}
	s.notifier.NotifyConversationUpdated(senderKey, event)
	s.notifier.NotifyConversationUpdated(counterpartyKey, event)
}
