package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/courierapp/backend/internal/auth"
	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/identity"
	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetSessionFromContext extracts the caller's email from context, resolves
// or creates the user row, and builds the Session passed into every chat
// operation. It writes the appropriate HTTP error and returns false on
// failure. This is a shared helper used across handlers so user resolution
// behaves the same everywhere.
func GetSessionFromContext(ctx context.Context, w http.ResponseWriter, pool *pgxpool.Pool) (identity.Session, bool) {
	email, ok := auth.GetUserEmailFromContext(ctx)
	if !ok {
		log.Println("API: No user email in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return identity.Session{}, false
	}

	key := identity.SafeKey(email)
	user, err := db.GetOrCreateUser(ctx, pool, key, email, "")
	if err != nil {
		log.Printf("API: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return identity.Session{}, false
	}

	return identity.Session{
		Email:       email,
		Key:         key,
		DisplayName: user.DisplayName,
	}, true
}

// WriteJSONResponse encodes the response into a buffer first so a failed
// encode cannot leave a partial body on the wire. Only writes headers and
// body if encoding succeeded. Returns false after writing an error status.
func WriteJSONResponse(w http.ResponseWriter, status int, response any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(response); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
		return false
	}
	return true
}

// DecodeJSONRequest parses a JSON request body into dst, writing a 400 on
// failure.
func DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// ValidateMessageContent checks a caller-supplied message payload: the kind
// tag must be accepted, and the kinds that carry a payload must actually
// carry one.
func ValidateMessageContent(content models.MessageContent) error {
	if !models.IsKnownKind(content.Kind) {
		return fmt.Errorf("unknown message kind %q", content.Kind)
	}

	switch content.Kind {
	case models.KindText:
		if content.Text == "" {
			return fmt.Errorf("text message requires text")
		}
	case models.KindPhoto, models.KindVideo:
		if content.URL == "" {
			return fmt.Errorf("%s message requires url", content.Kind)
		}
	case models.KindLocation:
		if content.Location == nil {
			return fmt.Errorf("location message requires coordinates")
		}
	}

	return nil
}
