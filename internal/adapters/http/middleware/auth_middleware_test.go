package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sacco-hub/internal/config"
	"sacco-hub/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	whoami := func(c *fiber.Ctx) error {
		actor, ok := Actor(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": actor.MemberID, "role": actor.Role})
	}
	app.Get("/me", AuthMiddleware(cfg), whoami)
	app.Get("/events/stream", AuthMiddleware(cfg), whoami)
	app.Get("/admin", AuthMiddleware(cfg), AdminOnly(), whoami)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret"}}
	app := newAuthApp(cfg)

	member, err := jwt.GenerateAccessToken(7, "alice", "member", cfg.JWT.Secret, 15)
	require.NoError(t, err)
	admin, err := jwt.GenerateAccessToken(1, "boss", "admin", cfg.JWT.Secret, 15)
	require.NoError(t, err)
	foreign, err := jwt.GenerateAccessToken(7, "alice", "member", "other-secret", 15)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{"no token", "/me", "", "", http.StatusUnauthorized},
		{"bearer", "/me", "Bearer " + member, "", http.StatusOK},
		{"cookie", "/me", "", member, http.StatusOK},
		{"wrong secret", "/me", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"query token ignored off streams", "/me?token=" + member, "", "", http.StatusUnauthorized},
		{"query token on stream", "/events/stream?token=" + member, "", "", http.StatusOK},
		{"member on admin route", "/admin", "Bearer " + member, "", http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + admin, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
