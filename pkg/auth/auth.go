package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/banmd/go-whatsapp-bot/pkg/env"
	"github.com/banmd/go-whatsapp-bot/pkg/router"
)

var adminSecretKey string

func init() {
	adminSecretKey = env.GetEnvStringOrDefault("ADMIN_SECRET", "")
}

// AdminAuth validates the X-Admin-Secret header for operator endpoints
// such as logout. The secret comes from the ADMIN_SECRET environment
// variable; when it is unset every request is rejected.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminSecret := c.Get("X-Admin-Secret")
		if adminSecret == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret header")
		}

		if adminSecretKey == "" {
			return router.ResponseInternalError(c, "Admin secret key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(adminSecretKey)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid admin secret")
		}

		return c.Next()
	}
}
