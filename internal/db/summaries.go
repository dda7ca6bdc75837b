package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetSummaries returns one participant's conversation index in storage
// (creation) order. An unknown user is ErrUserNotFound; a known user with no
// conversations yields an empty slice. Callers must not conflate the two.
func GetSummaries(ctx context.Context, pool *pgxpool.Pool, userKey string) ([]*models.ConversationSummary, error) {
	var exists string
	err := pool.QueryRow(ctx, `
		SELECT identity_key FROM users WHERE identity_key = $1
	`, userKey).Scan(&exists)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT conversation_id, user_key, other_user_key, other_user_name,
		       latest_date, latest_text, latest_is_read, version
		FROM conversation_summaries
		WHERE user_key = $1
		ORDER BY created_at, conversation_id
	`, userKey)

	if err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}
	defer rows.Close()

	summaries := []*models.ConversationSummary{}
	for rows.Next() {
		var summary models.ConversationSummary
		if err := rows.Scan(
			&summary.ConversationID,
			&summary.UserKey,
			&summary.OtherUserKey,
			&summary.OtherUserName,
			&summary.Latest.Date,
			&summary.Latest.Text,
			&summary.Latest.IsRead,
			&summary.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}

	return summaries, nil
}

// UpsertSummary inserts a new index entry or, when the conversation already
// has one, replaces only its latest-message snapshot. The statement is
// atomic per entry, so two concurrent sends cannot lose each other's write
// the way a whole-list read-modify-write would; version counts writes and
// lets clients detect staleness. The counterparty's copy of the same
// snapshot is a separate row updated by a separate call.
func UpsertSummary(ctx context.Context, pool *pgxpool.Pool, summary *models.ConversationSummary) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO conversation_summaries
			(user_key, conversation_id, other_user_key, other_user_name,
			 latest_date, latest_text, latest_is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_key, conversation_id) DO UPDATE SET
			latest_date = EXCLUDED.latest_date,
			latest_text = EXCLUDED.latest_text,
			latest_is_read = EXCLUDED.latest_is_read,
			version = conversation_summaries.version + 1,
			updated_at = now()
		RETURNING version
	`,
		summary.UserKey,
		summary.ConversationID,
		summary.OtherUserKey,
		summary.OtherUserName,
		summary.Latest.Date,
		summary.Latest.Text,
		summary.Latest.IsRead,
	).Scan(&summary.Version)

	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}

	return nil
}

// RemoveSummary deletes the entry for the given conversation from one
// participant's index. A missing entry is a no-op, not an error; another
// session may have removed it already.
func RemoveSummary(ctx context.Context, pool *pgxpool.Pool, userKey, conversationID string) error {
	_, err := pool.Exec(ctx, `
		DELETE FROM conversation_summaries
		WHERE user_key = $1 AND conversation_id = $2
	`, userKey, conversationID)

	if err != nil {
		return fmt.Errorf("failed to remove summary: %w", err)
	}

	return nil
}

// MarkSummaryRead flips the latest-message read flag on one participant's
// entry. Missing entries are ignored for the same reason as RemoveSummary.
func MarkSummaryRead(ctx context.Context, pool *pgxpool.Pool, userKey, conversationID string) error {
	_, err := pool.Exec(ctx, `
		UPDATE conversation_summaries
		SET latest_is_read = true, version = version + 1, updated_at = now()
		WHERE user_key = $1 AND conversation_id = $2
	`, userKey, conversationID)

	if err != nil {
		return fmt.Errorf("failed to mark summary read: %w", err)
	}

	return nil
}
