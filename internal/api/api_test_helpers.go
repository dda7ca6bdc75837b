package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"

	"github.com/courierapp/backend/internal/auth"
	"github.com/courierapp/backend/internal/db"
	"github.com/courierapp/backend/internal/identity"
)

// setupTestUser registers a user and returns their identity key.
func setupTestUser(t *testing.T, pool *pgxpool.Pool, email, displayName string) string {
	t.Helper()
	key := identity.SafeKey(email)
	if _, err := db.GetOrCreateUser(context.Background(), pool, key, email, displayName); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return key
}

// createRequestWithUser creates an HTTP request with user email in context.
func createRequestWithUser(method, url string, body io.Reader, email string) *http.Request {
	req := httptest.NewRequest(method, url, body)
	ctx := context.WithValue(req.Context(), auth.UserEmailKey, email)
	return req.WithContext(ctx)
}

// FailingResponseWriter is a ResponseWriter that fails on Write to test error handling.
type FailingResponseWriter struct {
	http.ResponseWriter
	WriteShouldFail bool
}

func (f *FailingResponseWriter) Write(p []byte) (int, error) {
	if f.WriteShouldFail {
		return 0, fmt.Errorf("write failed")
	}
	return f.ResponseWriter.Write(p)
}

// VerifyAuthCheck verifies that the handler returns 401 Unauthorized when no user is in context.
func VerifyAuthCheck(t *testing.T, handlerFunc http.HandlerFunc, method, url string) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	rr := httptest.NewRecorder()
	handlerFunc(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 when no user email in context")
}
