package middleware

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func authApp() *fiber.App {
	m := NewAuthMiddleware(testSecret)
	app := fiber.New()
	app.Get("/me", m.Authenticate(), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})
	return app
}

func authRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "/me", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
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

func signClaims(t *testing.T, claims UserClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestAuthenticate_ValidToken(t *testing.T) {
	app := authApp()
	m := NewAuthMiddleware(testSecret)
	token, err := m.GenerateToken("u-42")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	resp := authRequest(t, app, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "u-42" {
		t.Errorf("user id not propagated, got %q", body)
	}
}

func TestAuthenticate_EmptyUserIDClaim(t *testing.T) {
	app := authApp()
	token := signClaims(t, UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	resp := authRequest(t, app, token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("token without userId must be rejected, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	app := authApp()
	token := signClaims(t, UserClaims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	resp := authRequest(t, app, token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expired token must be rejected, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	app := authApp()

	resp := authRequest(t, app, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}
