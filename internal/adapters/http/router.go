package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/canopyviz/internal/pkg/metrics"
)

// Rendering calls wait on the platform; catalog lookups are quick.
const (
	catalogTimeout = 15 * time.Second
	renderTimeout  = 90 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Request-scoped slog logger and access log
	app.Use(RequestLogger())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(etag.New(etag.Config{Weak: true}))
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Browser map viewer
	app.Get("/", timeout.NewWithContext(ViewerHandler(deps), catalogTimeout))

	v1 := app.Group("/v1")
	v1.Get("/datasets/*", timeout.NewWithContext(DescribeDatasetHandler(deps), catalogTimeout))
	v1.Post("/layers", timeout.NewWithContext(CreateLayerHandler(deps), renderTimeout))
	v1.Get("/layers", timeout.NewWithContext(ListLayersHandler(deps), catalogTimeout))
	v1.Get("/layers/:id", timeout.NewWithContext(GetLayerHandler(deps), catalogTimeout))
	v1.Post("/thumbnails", timeout.NewWithContext(CreateThumbnailHandler(deps), renderTimeout))
	v1.Get("/thumbnails", timeout.NewWithContext(ListThumbnailsHandler(deps), catalogTimeout))
	v1.Get("/palettes/canopy", CanopyPresetHandler(deps))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), renderTimeout))

	// API documentation (Swagger UI)
	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
