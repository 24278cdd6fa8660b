package http

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2"
)

// etagged lists the read paths worth revalidating. Source collections and
// the style are large and change only when the scene does.
var etagged = []string{"/v1/scene/sources/", "/v1/scene/style", "/v1/journeys", "/docs/openapi.yaml"}

// ETagMiddleware tags successful reads on etagged paths with a weak ETag
// over the body and answers 304 when the client already holds it.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || !hasETag(c.Path()) {
			return c.Next()
		}
		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		etag := `W/"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
		c.Set(fiber.HeaderETag, etag)

		if matchesETag(c.Get(fiber.HeaderIfNoneMatch), etag) {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}

func hasETag(path string) bool {
	for _, p := range etagged {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// matchesETag reports whether an If-None-Match list names etag. Weak
// comparison applies, so a strong form of the same tag also matches.
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	opaque := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == opaque {
			return true
		}
	}
	return false
}
