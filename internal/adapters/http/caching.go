package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Handlers that set their own header win.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if existing := c.Response().Header.Peek(fiber.HeaderCacheControl); len(existing) > 0 {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"
		case path == "/metrics":
			ttl = "no-cache"
		case path == "/":
			ttl = "no-cache" // viewer follows the latest layer
		case path == "/v1/palettes/canopy":
			ttl = "public, max-age=86400"
		case strings.HasPrefix(path, "/v1/datasets/"):
			ttl = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/layers/"):
			ttl = "public, max-age=600" // layers are immutable once registered
		case path == "/v1/layers" || path == "/v1/thumbnails":
			ttl = "public, max-age=30"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
