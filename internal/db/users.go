package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when a requested user cannot be found.
var ErrUserNotFound = errors.New("user not found")

// GetOrCreateUser returns the user for the given identity key, creating the
// row on first contact. The identity key never changes once created; the
// display name is only taken from the caller when the stored one is empty
// (explicit renames go through UpdateDisplayName).
func GetOrCreateUser(ctx context.Context, pool *pgxpool.Pool, identityKey, email, displayName string) (*models.User, error) {
	var user models.User

	err := pool.QueryRow(ctx, `
		INSERT INTO users (identity_key, email, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_key) DO UPDATE SET
			display_name = CASE
				WHEN users.display_name = '' THEN EXCLUDED.display_name
				ELSE users.display_name
			END,
			updated_at = now()
		RETURNING id, identity_key, email, display_name, created_at, updated_at
	`, identityKey, email, displayName).Scan(
		&user.ID,
		&user.IdentityKey,
		&user.Email,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}

	return &user, nil
}

// GetUserByKey returns the user with the given identity key.
func GetUserByKey(ctx context.Context, pool *pgxpool.Pool, identityKey string) (*models.User, error) {
	var user models.User

	err := pool.QueryRow(ctx, `
		SELECT id, identity_key, email, display_name, created_at, updated_at
		FROM users
		WHERE identity_key = $1
	`, identityKey).Scan(
		&user.ID,
		&user.IdentityKey,
		&user.Email,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpdateDisplayName changes the user's display name. Existing conversation
// summaries keep the denormalized old name; they are not rewritten.
func UpdateDisplayName(ctx context.Context, pool *pgxpool.Pool, identityKey, displayName string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE users
		SET display_name = $2, updated_at = now()
		WHERE identity_key = $1
	`, identityKey, displayName)

	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListUsers returns the people directory, used to start new conversations.
func ListUsers(ctx context.Context, pool *pgxpool.Pool) ([]*models.User, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, identity_key, email, display_name, created_at, updated_at
		FROM users
		ORDER BY display_name, identity_key
	`)

	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.IdentityKey,
			&user.Email,
			&user.DisplayName,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
