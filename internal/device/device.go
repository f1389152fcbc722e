package device

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/banmd/go-whatsapp-bot/internal/bot"
	"github.com/banmd/go-whatsapp-bot/pkg/router"
	pkgWhatsApp "github.com/banmd/go-whatsapp-bot/pkg/whatsapp"
)

// Controller serves the connection-lifecycle endpoints for the single
// injected session.
type Controller struct {
	Session  *pkgWhatsApp.Session
	Config   *bot.Config
	Registry *bot.Registry
}

func NewController(session *pkgWhatsApp.Session, cfg *bot.Config, registry *bot.Registry) *Controller {
	return &Controller{Session: session, Config: cfg, Registry: registry}
}

type responseQR struct {
	QR string `json:"qr"`
}

type responsePair struct {
	Code string `json:"code"`
}

type responseStatus struct {
	BotName    string `json:"bot_name"`
	State      string `json:"state"`
	LoggedIn   bool   `json:"logged_in"`
	Connected  bool   `json:"connected"`
	JID        string `json:"jid,omitempty"`
	Uptime     string `json:"uptime"`
	Commands   int    `json:"commands"`
	Goroutines int    `json:"goroutines"`
	GoVersion  string `json:"go_version"`
}

// QR serves the current login QR code as a base64 PNG data URL.
func (ctl *Controller) QR(c *fiber.Ctx) error {
	qr, err := ctl.Session.QRCode()
	switch {
	case errors.Is(err, pkgWhatsApp.ErrQRNotAvailable):
		if ctl.Session.IsLoggedIn() {
			return router.ResponseNotFound(c, "Session is already logged in")
		}
		return router.ResponseNotFound(c, err.Error())
	case errors.Is(err, pkgWhatsApp.ErrQRExpired):
		return router.ResponseGone(c, err.Error())
	case err != nil:
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Success generate QR code", responseQR{QR: qr})
}

// Pair requests a phone pairing code as an alternative to QR scanning.
func (ctl *Controller) Pair(c *fiber.Ctx) error {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		return router.ResponseBadRequest(c, "Query parameter phone is required")
	}

	code, err := ctl.Session.PairPhone(c.UserContext(), pkgWhatsApp.DigitsOnly(phone))
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Success generate pairing code", responsePair{Code: code})
}

// Status reports the session state and a few process stats.
func (ctl *Controller) Status(c *fiber.Ctx) error {
	status := responseStatus{
		BotName:    ctl.Config.BotName,
		State:      ctl.Session.State().String(),
		LoggedIn:   ctl.Session.IsLoggedIn(),
		Connected:  ctl.Session.IsConnected(),
		Uptime:     ctl.Session.Uptime().Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}
	if own := ctl.Session.OwnJID(); !own.IsEmpty() {
		status.JID = own.String()
	}
	if ctl.Registry != nil {
		status.Commands = ctl.Registry.Len()
	}

	return router.ResponseSuccessWithData(c, "Success get status", status)
}

// Health is the minimal liveness probe: 200 plain OK while the session is
// connected and logged in, 503 otherwise.
func (ctl *Controller) Health(c *fiber.Ctx) error {
	if err := ctl.Session.IsHealthy(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString(err.Error())
	}
	return c.SendString("OK")
}

// Logout clears the stored credentials and permanently closes the session.
func (ctl *Controller) Logout(c *fiber.Ctx) error {
	if err := ctl.Session.Logout(c.UserContext()); err != nil {
		if errors.Is(err, pkgWhatsApp.ErrNotLoggedIn) {
			return router.ResponseBadRequest(c, err.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccess(c, "Success logout, restart the process to relink")
}
