package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/courierapp/backend/internal/chat"
	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessagesHandler handles message-log API requests.
type MessagesHandler struct {
	pool *pgxpool.Pool
	chat chat.ChatService
}

// NewMessagesHandler creates a new MessagesHandler instance.
func NewMessagesHandler(pool *pgxpool.Pool, chatService chat.ChatService) *MessagesHandler {
	return &MessagesHandler{
		pool: pool,
		chat: chatService,
	}
}

// GetMessages returns the conversation's message history in log order.
// Records that fail to decode have already been dropped by the store.
// With mark_read=1 the caller's own latest-message snapshot is flagged read.
func (h *MessagesHandler) GetMessages(w http.ResponseWriter, r *http.Request, conversationID string) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	messages, err := h.chat.ListMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("MessagesHandler: Failed to list messages: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("mark_read") == "1" {
		if err := h.chat.MarkRead(ctx, session.Key, conversationID); err != nil {
			// The listing succeeded; a failed read-flag update is not worth
			// failing the request over.
			log.Printf("MessagesHandler: Failed to mark conversation read: %v", err)
		}
	}

	if messages == nil {
		messages = []*models.Message{}
	}

	response := models.MessagesResponse{Messages: messages}
	if !WriteJSONResponse(w, http.StatusOK, response) {
		return
	}
}

// PostMessage appends a message to an existing conversation.
func (h *MessagesHandler) PostMessage(w http.ResponseWriter, r *http.Request, conversationID string) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var request models.SendMessageRequest
	if !DecodeJSONRequest(w, r, &request) {
		return
	}

	if request.CounterpartyEmail == "" {
		http.Error(w, "counterparty_email is required", http.StatusBadRequest)
		return
	}

	if err := ValidateMessageContent(request.Message); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	message, err := h.chat.SendMessage(ctx, session, conversationID, request.CounterpartyEmail, request.CounterpartyName, request.Message)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("MessagesHandler: Failed to send message: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !WriteJSONResponse(w, http.StatusCreated, message) {
		return
	}
}
