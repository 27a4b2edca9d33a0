package middleware

import (
	"errors"
	"strings"

	"sacco-hub/internal/config"
	"sacco-hub/internal/core/domain"
	"sacco-hub/internal/pkg/jwt"
	"sacco-hub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware creates authentication middleware
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// cookie first, then Authorization header
		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			authHeader := c.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				accessToken = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}
		// EventSource cannot send headers
		if accessToken == "" && strings.HasSuffix(c.Path(), "/stream") {
			accessToken = c.Query("token")
		}

		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals("memberID", claims.MemberID)
		c.Locals("username", claims.Username)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// RoleMiddleware creates role-based authorization middleware
func RoleMiddleware(allowedRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if domain.Role(role) == allowedRole {
				return c.Next()
			}
		}

		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only the admin role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(domain.RoleAdmin)
}

// Actor returns the authenticated caller set by AuthMiddleware
func Actor(c *fiber.Ctx) (domain.Actor, bool) {
	id, ok := c.Locals("memberID").(uint)
	if !ok || id == 0 {
		return domain.Actor{}, false
	}
	role, _ := c.Locals("role").(string)
	return domain.Actor{MemberID: id, Role: domain.Role(role)}, true
}
