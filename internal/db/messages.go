package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConversationNotFound is returned when a conversation does not exist.
// For listings this often means "not yet created" rather than a hard
// failure; callers decide.
var ErrConversationNotFound = errors.New("conversation not found")

// CreateConversation mints the conversation row for a participant pair.
// Re-creating an existing id is a no-op, so retrying a failed creation flow
// is safe.
func CreateConversation(ctx context.Context, pool *pgxpool.Pool, conversationID, participantA, participantB string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, conversationID, participantA, participantB)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// AppendMessage appends a message to the conversation's log. The sequence
// number is assigned inside a transaction that locks the conversation row,
// so concurrent appends serialize instead of overwriting each other, and
// the resulting seq is gapless per conversation. Appending the same message
// id twice leaves the log unchanged and reports the existing entry, which
// makes whole-operation retries safe.
func AppendMessage(ctx context.Context, pool *pgxpool.Pool, conversationID string, message *models.Message) error {
	record, err := models.EncodeMessageRecord(message)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var lockedID string
	err = tx.QueryRow(ctx, `
		SELECT id FROM conversations WHERE id = $1 FOR UPDATE
	`, conversationID).Scan(&lockedID)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to lock conversation: %w", err)
	}

	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, seq, message_id, record)
		SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3
		FROM messages
		WHERE conversation_id = $1
		ON CONFLICT (message_id) DO UPDATE SET record = messages.record
		RETURNING seq
	`, conversationID, message.ID, record).Scan(&seq)

	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message append: %w", err)
	}

	message.ConversationID = conversationID
	message.Seq = seq
	return nil
}

// ListMessages returns the conversation's messages in log order. A stored
// record that fails to decode is skipped and logged; one corrupt entry must
// not hide the rest of the history. Returns ErrConversationNotFound when the
// conversation was never created.
func ListMessages(ctx context.Context, pool *pgxpool.Pool, conversationID string) ([]*models.Message, error) {
	var exists string
	err := pool.QueryRow(ctx, `
		SELECT id FROM conversations WHERE id = $1
	`, conversationID).Scan(&exists)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConversationNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to check conversation: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT seq, record
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)

	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var seq int64
		var record []byte
		if err := rows.Scan(&seq, &record); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		message, err := models.DecodeMessageRecord(record)
		if err != nil {
			if errors.Is(err, models.ErrMalformedRecord) {
				log.Printf("db: skipping malformed message record in conversation %s at seq %d: %v", conversationID, seq, err)
				continue
			}
			return nil, err
		}

		message.ConversationID = conversationID
		message.Seq = seq
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
