package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

func HttpCacheInMemory(ttl int) fiber.Handler {
	if ttl <= 0 {
		ttl = 5
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			// QR codes expire quickly; caching them serves stale codes.
			return c.Method() != fiber.MethodGet || c.Path() == BaseURL+"/qr"
		},
		Expiration: time.Duration(ttl) * time.Second,
	})
}
