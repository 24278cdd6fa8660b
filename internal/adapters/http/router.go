package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/canopyops/geoscene/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware(deps.Logger))

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: viewers poll the scene, so the budget is generous.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || websocket.IsWebSocketUpgrade(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version. The viewport is embedded by the back
	// office, so it may be framed by the same origin.
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		if c.Path() == "/v1/scene/viewport" {
			c.Set("X-Frame-Options", "SAMEORIGIN")
		} else {
			c.Set("X-Frame-Options", "DENY")
		}
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Scene
	v1.Get("/scene", SceneHandler(deps))
	v1.Get("/scene/style", SceneStyleHandler(deps))
	v1.Get("/scene/viewport", ViewportHandler(deps))
	v1.Get("/scene/sources/:name", SceneSourceHandler(deps))
	v1.Put("/scene/visibility", SetVisibilityHandler(deps))
	v1.Put("/scene/loading", SetLoadingHandler(deps))
	v1.Post("/scene/zoom", ZoomHandler(deps))
	v1.Post("/scene/reset-view", ResetViewHandler(deps))
	v1.Post("/scene/events", SceneEventHandler(deps))
	v1.Delete("/scene/popup", ClosePopupHandler(deps))
	v1.Post("/scene/refresh", timeout.NewWithContext(RefreshHandler(deps), requestTimeout))

	// Journeys
	v1.Get("/journeys", timeout.NewWithContext(ListJourneysHandler(deps), requestTimeout))
	v1.Get("/journeys/:trackingId", timeout.NewWithContext(GetJourneyHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
