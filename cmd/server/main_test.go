package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/courierapp/backend/internal/config"
	"github.com/courierapp/backend/internal/testutil"
)

func TestHandleRoot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handleRoot(w, req)

	res := w.Result()
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			t.Fatalf("failed to close response body: %v", err)
		}
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	if contentType != "text/plain" {
		t.Errorf("expected Content-Type 'text/plain', got '%s'", contentType)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	expected := "Courier API is running"
	if string(body) != expected {
		t.Errorf("expected body '%s', got '%s'", expected, string(body))
	}
}

func TestNewServer(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	cfg := &config.Config{
		Environment:   "test",
		Port:          "8080",
		ObjectDir:     t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
		Timezone:      "UTC",
	}

	server := NewServer(context.Background(), cfg, pool)

	if server == nil {
		t.Fatal("NewServer() returned nil")
	}

	t.Run("serves the root endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		server.ServeHTTP(w, req)

		res := w.Result()
		defer func() {
			_ = res.Body.Close()
		}()

		if res.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", res.StatusCode)
		}

		body, err := io.ReadAll(res.Body)
		if err != nil {
			t.Fatalf("failed to read response body: %v", err)
		}

		expected := "Courier API is running"
		if string(body) != expected {
			t.Errorf("expected body '%s', got '%s'", expected, string(body))
		}
	})

	t.Run("protected routes require authentication", func(t *testing.T) {
		paths := []string{
			"/api/v1/conversations",
			"/api/v1/conversations/find?email=x@example.com",
			"/api/v1/users",
			"/api/v1/profile",
			"/api/v1/uploads",
		}
		for _, path := range paths {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()

			server.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401 for %s, got %d", path, w.Code)
			}
		}
	})
}
