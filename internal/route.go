package internal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/banmd/go-whatsapp-bot/pkg/auth"
	"github.com/banmd/go-whatsapp-bot/pkg/router"

	ctlDevice "github.com/banmd/go-whatsapp-bot/internal/device"
	ctlIndex "github.com/banmd/go-whatsapp-bot/internal/index"
)

func Routes(app *fiber.App, device *ctlDevice.Controller) {
	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Route for Session Lifecycle
	// ---------------------------------------------
	app.Get(router.BaseURL+"/qr", device.QR)
	app.Get(router.BaseURL+"/pair", device.Pair)
	app.Get(router.BaseURL+"/status", device.Status)
	app.Get(router.BaseURL+"/health", device.Health)

	// Logout wipes stored credentials, so it sits behind the admin secret.
	app.Post(router.BaseURL+"/logout", auth.AdminAuth(), device.Logout)
}
