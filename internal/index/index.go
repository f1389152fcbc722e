package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banmd/go-whatsapp-bot/pkg/router"
)

func Index(c *fiber.Ctx) error {
	return router.ResponseSuccess(c, "Go WhatsApp Bot is running")
}
