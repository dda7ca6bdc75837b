package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courierapp/backend/internal/chat"
	"github.com/courierapp/backend/internal/identity"
	"github.com/courierapp/backend/internal/models"
	"github.com/courierapp/backend/internal/testutil"
)

// startConversation creates a conversation through the service and returns
// its id.
func startConversation(t *testing.T, service chat.ChatService, senderEmail, senderName, counterpartyEmail, counterpartyName, text string) string {
	t.Helper()
	session := identity.NewSession(senderEmail, senderName)
	conversationID, err := service.CreateConversation(context.Background(), session, counterpartyEmail, counterpartyName, models.TextContent(text))
	if err != nil {
		t.Fatalf("Failed to create conversation: %v", err)
	}
	return conversationID
}

func TestMessagesHandler_GetMessages(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	service := chat.NewService(pool, nil)
	handler := NewMessagesHandler(pool, service)

	t.Run("returns 404 for an unknown conversation", func(t *testing.T) {
		setupTestUser(t, pool, "alice@example.com", "Alice")

		req := createRequestWithUser("GET", "/api/v1/conversations/conversation_missing/messages", nil, "alice@example.com")
		rr := httptest.NewRecorder()
		handler.GetMessages(rr, req, "conversation_missing")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("returns the log in append order", func(t *testing.T) {
		setupTestUser(t, pool, "alice@example.com", "Alice")
		setupTestUser(t, pool, "bob@example.com", "Bob")

		conversationID := startConversation(t, service, "alice@example.com", "Alice", "bob@example.com", "Bob", "first")
		bob := identity.NewSession("bob@example.com", "Bob")
		if _, err := service.SendMessage(context.Background(), bob, conversationID, "alice@example.com", "Alice", models.TextContent("second")); err != nil {
			t.Fatalf("Failed to send message: %v", err)
		}

		req := createRequestWithUser("GET", "/api/v1/conversations/"+conversationID+"/messages", nil, "alice@example.com")
		rr := httptest.NewRecorder()
		handler.GetMessages(rr, req, conversationID)

		assert.Equal(t, http.StatusOK, rr.Code)

		var response models.MessagesResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if assert.Len(t, response.Messages, 2) {
			assert.Equal(t, "first", response.Messages[0].Content.Text)
			assert.Equal(t, int64(1), response.Messages[0].Seq)
			assert.Equal(t, "second", response.Messages[1].Content.Text)
			assert.Equal(t, int64(2), response.Messages[1].Seq)
		}
	})

	t.Run("mark_read flips the caller's snapshot only", func(t *testing.T) {
		setupTestUser(t, pool, "carol@example.com", "Carol")
		setupTestUser(t, pool, "dan@example.com", "Dan")

		conversationID := startConversation(t, service, "carol@example.com", "Carol", "dan@example.com", "Dan", "ping")

		req := createRequestWithUser("GET", "/api/v1/conversations/"+conversationID+"/messages?mark_read=1", nil, "dan@example.com")
		rr := httptest.NewRecorder()
		handler.GetMessages(rr, req, conversationID)

		assert.Equal(t, http.StatusOK, rr.Code)

		danList, err := service.ListConversations(context.Background(), identity.SafeKey("dan@example.com"))
		if err != nil {
			t.Fatalf("Failed to list conversations: %v", err)
		}
		if assert.Len(t, danList, 1) {
			assert.True(t, danList[0].Latest.IsRead)
		}

		carolList, err := service.ListConversations(context.Background(), identity.SafeKey("carol@example.com"))
		if err != nil {
			t.Fatalf("Failed to list conversations: %v", err)
		}
		if assert.Len(t, carolList, 1) {
			assert.False(t, carolList[0].Latest.IsRead)
		}
	})
}

func TestMessagesHandler_PostMessage(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	service := chat.NewService(pool, nil)
	handler := NewMessagesHandler(pool, service)

	t.Run("returns 400 when the payload does not match its kind", func(t *testing.T) {
		setupTestUser(t, pool, "erin@example.com", "Erin")

		body, _ := json.Marshal(models.SendMessageRequest{
			CounterpartyEmail: "frank@example.com",
			Message:           models.MessageContent{Kind: models.KindPhoto},
		})
		req := createRequestWithUser("POST", "/api/v1/conversations/conversation_x/messages", bytes.NewReader(body), "erin@example.com")
		rr := httptest.NewRecorder()
		handler.PostMessage(rr, req, "conversation_x")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("returns 404 for an unknown conversation", func(t *testing.T) {
		setupTestUser(t, pool, "erin@example.com", "Erin")

		body, _ := json.Marshal(models.SendMessageRequest{
			CounterpartyEmail: "frank@example.com",
			Message:           models.TextContent("hello?"),
		})
		req := createRequestWithUser("POST", "/api/v1/conversations/conversation_missing/messages", bytes.NewReader(body), "erin@example.com")
		rr := httptest.NewRecorder()
		handler.PostMessage(rr, req, "conversation_missing")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("appends and returns the stored message", func(t *testing.T) {
		setupTestUser(t, pool, "erin@example.com", "Erin")
		setupTestUser(t, pool, "frank@example.com", "Frank")

		conversationID := startConversation(t, service, "erin@example.com", "Erin", "frank@example.com", "Frank", "opener")

		body, _ := json.Marshal(models.SendMessageRequest{
			CounterpartyEmail: "erin@example.com",
			CounterpartyName:  "Erin",
			Message:           models.TextContent("reply"),
		})
		req := createRequestWithUser("POST", "/api/v1/conversations/"+conversationID+"/messages", bytes.NewReader(body), "frank@example.com")
		rr := httptest.NewRecorder()
		handler.PostMessage(rr, req, conversationID)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var message models.Message
		if err := json.Unmarshal(rr.Body.Bytes(), &message); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		assert.Equal(t, int64(2), message.Seq)
		assert.Equal(t, identity.SafeKey("frank@example.com"), message.SenderKey)
		assert.Equal(t, "reply", message.Content.Text)
	})
}
