package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// NoStore marks responses as uncacheable. Balances and loan figures must
// never be served from an intermediary cache.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderPragma, "no-cache")
		return err
	}
}
