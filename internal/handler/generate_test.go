package handler

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/novelreel/api/internal/middleware"
)

const testJWTSecret = "test-secret"

// setupApp wires the generate routes with auth but no backing services.
// Requests that fail auth or validation never reach the service layer, which
// is what these tests cover.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	h := NewGenerateHandler(nil, validator.New())
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New()
	api := app.Group("/api", authMiddleware.Authenticate())
	api.Post("/generate/script", h.StartScript)
	api.Post("/generate/storyboard", h.StartStoryboard)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func testToken(t *testing.T) string {
	t.Helper()
	m := middleware.NewAuthMiddleware(testJWTSecret)
	token, err := m.GenerateToken("test-user")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func TestStartScript_NoAuth(t *testing.T) {
	app := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/generate/script",
		`{"projectId":"x"}`, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStartScript_BadToken(t *testing.T) {
	app := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/generate/script",
		`{"projectId":"x"}`, "not-a-jwt")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStartScript_InvalidBody(t *testing.T) {
	app := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/generate/script",
		`{"projectId":"not-a-uuid","episodeId":""}`, testToken(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStartStoryboard_InvalidLocale(t *testing.T) {
	app := setupApp(t)

	body := `{
		"projectId":"6a1f5d2e-9f2b-4c3a-8e1d-2b3c4d5e6f70",
		"episodeId":"7b2e6c3f-0a3c-4d4b-9f2e-3c4d5e6f7081",
		"locale":"de"
	}`
	resp := doRequest(t, app, http.MethodPost, "/api/generate/storyboard", body, testToken(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported locale, got %d", resp.StatusCode)
	}
}
