package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileHandler handles the caller's own profile.
type ProfileHandler struct {
	pool *pgxpool.Pool
}

// NewProfileHandler creates a new ProfileHandler instance.
func NewProfileHandler(pool *pgxpool.Pool) *ProfileHandler {
	return &ProfileHandler{pool: pool}
}

// GetProfile returns the caller's user record.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	user, err := db.GetUserByKey(ctx, h.pool, session.Key)
	if err != nil {
		log.Printf("ProfileHandler: Failed to load user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if !WriteJSONResponse(w, http.StatusOK, user) {
		return
	}
}

// UpdateProfile sets the caller's display name. The name stored here is what
// counterparties see before any conversation carries a fresher one.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	var request models.ProfileRequest
	if !DecodeJSONRequest(w, r, &request) {
		return
	}

	if request.DisplayName == "" {
		http.Error(w, "display_name is required", http.StatusBadRequest)
		return
	}

	if err := db.UpdateDisplayName(ctx, h.pool, session.Key, request.DisplayName); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("ProfileHandler: Failed to update display name: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
