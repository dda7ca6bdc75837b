package api

import (
	"log"
	"net/http"

	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersHandler serves the people directory used to start new conversations.
type UsersHandler struct {
	pool *pgxpool.Pool
}

// NewUsersHandler creates a new UsersHandler instance.
func NewUsersHandler(pool *pgxpool.Pool) *UsersHandler {
	return &UsersHandler{pool: pool}
}

// GetUsers returns every registered user except the caller.
func (h *UsersHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := GetSessionFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	users, err := db.ListUsers(ctx, h.pool)
	if err != nil {
		log.Printf("UsersHandler: Failed to list users: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	others := make([]*models.User, 0, len(users))
	for _, user := range users {
		if user.IdentityKey == session.Key {
			continue
		}
		others = append(others, user)
	}

	response := models.UsersResponse{Users: others}
	if !WriteJSONResponse(w, http.StatusOK, response) {
		return
	}
}
