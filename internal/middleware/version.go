package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// VersionMiddleware resolves the X-Api-Version request header, defaulting
// and normalizing short aliases, and exposes it to handlers via Locals.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", "1.0.0")
		if version == "1.0" {
			version = "1.0.0"
		}
		c.Locals("apiVersion", version)
		return c.Next()
	}
}
