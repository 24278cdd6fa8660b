package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// quietRoutes are polled by infrastructure or by every open viewport. They
// log at debug level unless they fail.
var quietRoutes = map[string]bool{
	"/metrics":                true,
	"/v1/health":              true,
	"/v1/ready":               true,
	"/v1/scene":               true,
	"/v1/scene/sources/:name": true,
}

// AccessLogMiddleware logs every request with the request-scoped logger.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method := c.Method()
		path := c.Path()

		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if n := len(c.Body()); n > 0 {
			attrs = append(attrs, slog.Int("bytes_in", n))
		}

		var level slog.Level
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case quietRoutes[route], status == fiber.StatusNotModified:
			level = slog.LevelDebug
		default:
			level = slog.LevelInfo
		}

		ctx := c.UserContext()
		LoggerFromCtx(ctx).LogAttrs(ctx, level, method+" "+path, attrs...)
		return err
	}
}
