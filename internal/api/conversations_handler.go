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

// ConversationsHandler handles conversation-index API requests.
type ConversationsHandler struct {
	pool *pgxpool.Pool
	chat chat.ChatService
}

// NewConversationsHandler creates a new ConversationsHandler instance.
func NewConversationsHandler(pool *pgxpool.Pool, chatService chat.ChatService) *ConversationsHandler {
	return &ConversationsHandler{
		pool: pool,
		chat: chatService,
	}
}

// GetConversations returns the caller's conversation index. Entries come
// back in storage order; clients wanting recency sort by the snapshot date.
func (h *ConversationsHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	summaries, err := h.chat.ListConversations(ctx, session.Key)
	if err != nil {
		log.Printf("ConversationsHandler: Failed to list conversations: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.ConversationsResponse{Conversations: summaries}
	if !WriteJSONResponse(w, http.StatusOK, response) {
		return
	}
}

// CreateConversation starts a conversation from its first message.
func (h *ConversationsHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var request models.CreateConversationRequest
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

	conversationID, err := h.chat.CreateConversation(ctx, session, request.CounterpartyEmail, request.CounterpartyName, request.Message)
	if err != nil {
		log.Printf("ConversationsHandler: Failed to create conversation: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.CreateConversationResponse{ConversationID: conversationID}
	if !WriteJSONResponse(w, http.StatusCreated, response) {
		return
	}
}

// FindConversation resolves an existing conversation with the counterparty
// named in the email query parameter. 404 means "take the creation path",
// not that something went wrong.
func (h *ConversationsHandler) FindConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	counterpartyEmail := r.URL.Query().Get("email")
	if counterpartyEmail == "" {
		http.Error(w, "email query parameter is required", http.StatusBadRequest)
		return
	}

	conversationID, err := h.chat.FindExistingConversation(ctx, session, counterpartyEmail)
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			// Clients branch on this body to take the creation path, so it
			// is JSON rather than a plain-text error.
			WriteJSONResponse(w, http.StatusNotFound, models.ErrorResponse{Error: "conversation not found"})
			return
		}
		log.Printf("ConversationsHandler: Failed to resolve conversation: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.FindConversationResponse{ConversationID: conversationID}
	if !WriteJSONResponse(w, http.StatusOK, response) {
		return
	}
}

// DeleteConversation removes the conversation from the caller's own index
// only.
func (h *ConversationsHandler) DeleteConversation(w http.ResponseWriter, r *http.Request, conversationID string) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	if err := h.chat.DeleteConversation(ctx, session.Key, conversationID); err != nil {
		log.Printf("ConversationsHandler: Failed to delete conversation: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
