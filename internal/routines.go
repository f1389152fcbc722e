package internal

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/banmd/go-whatsapp-bot/pkg/log"
)

// Routines registers the periodic background jobs and starts the scheduler.
func Routines(c *cron.Cron, app *App) {
	log.Print(nil).Info("Running Routine Tasks")

	// robfig/cron with seconds field (6 parts).
	_, err := c.AddFunc("0 */5 * * * *", func() {
		if err := app.Session.IsHealthy(); err != nil {
			log.Session().Warn("Health check: session unhealthy: " + err.Error())
			return
		}
		log.Session().Info("Health check: session healthy, state=" + app.Session.State().String())
	})
	if err != nil {
		log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
	}

	if app.Config.AlwaysOnline {
		_, err := c.AddFunc("0 * * * * *", func() {
			app.Session.Presence(context.Background(), true)
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add always-online cron job")
		} else {
			log.Print(nil).Info("Always-online presence refresh enabled")
		}
	}

	c.Start()
}
