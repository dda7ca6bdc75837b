package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courierapp/backend/internal/models"
	"github.com/courierapp/backend/internal/testutil"
)

func TestProfileHandler(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	handler := NewProfileHandler(pool)

	t.Run("returns 401 when no user email in context", func(t *testing.T) {
		VerifyAuthCheck(t, handler.GetProfile, "GET", "/api/v1/profile")
		VerifyAuthCheck(t, handler.UpdateProfile, "POST", "/api/v1/profile")
	})

	t.Run("first GET creates the user row", func(t *testing.T) {
		req := createRequestWithUser("GET", "/api/v1/profile", nil, "new@example.com")
		rr := httptest.NewRecorder()
		handler.GetProfile(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var user models.User
		if err := json.Unmarshal(rr.Body.Bytes(), &user); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		assert.Equal(t, "new@example.com", user.Email)
		assert.Equal(t, "new-example-com", user.IdentityKey)
	})

	t.Run("rejects an empty display name", func(t *testing.T) {
		body, _ := json.Marshal(models.ProfileRequest{})
		req := createRequestWithUser("POST", "/api/v1/profile", bytes.NewReader(body), "new@example.com")
		rr := httptest.NewRecorder()
		handler.UpdateProfile(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("updates the display name", func(t *testing.T) {
		body, _ := json.Marshal(models.ProfileRequest{DisplayName: "Newman"})
		req := createRequestWithUser("POST", "/api/v1/profile", bytes.NewReader(body), "new@example.com")
		rr := httptest.NewRecorder()
		handler.UpdateProfile(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)

		getReq := createRequestWithUser("GET", "/api/v1/profile", nil, "new@example.com")
		getRR := httptest.NewRecorder()
		handler.GetProfile(getRR, getReq)

		var user models.User
		if err := json.Unmarshal(getRR.Body.Bytes(), &user); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		assert.Equal(t, "Newman", user.DisplayName)
	})
}
