package internal

import (
	"context"
	"strings"
	"time"

	"github.com/banmd/go-whatsapp-bot/internal/bot"
	"github.com/banmd/go-whatsapp-bot/pkg/env"
	"github.com/banmd/go-whatsapp-bot/pkg/log"
	pkgWhatsApp "github.com/banmd/go-whatsapp-bot/pkg/whatsapp"
)

// App bundles everything main needs after startup.
type App struct {
	Session    *pkgWhatsApp.Session
	Config     *bot.Config
	Registry   *bot.Registry
	Moderation *bot.Moderation
	Dispatcher *bot.Dispatcher
}

// Startup opens the credential store, builds the session, loads the command
// table and connects. The returned App is fully wired; the session keeps
// reconnecting on its own until a terminal close.
func Startup(ctx context.Context) (*App, error) {
	log.Print(nil).Info("Running Startup Tasks")

	container, err := pkgWhatsApp.OpenDatastore(ctx)
	if err != nil {
		return nil, err
	}

	session, err := pkgWhatsApp.NewSession(ctx, container, pkgWhatsApp.Config{
		QRValidity:     env.GetEnvDurationOrDefault("WHATSAPP_QR_VALIDITY", 20*time.Second),
		WelcomeMessage: env.GetEnvStringOrDefault("WHATSAPP_WELCOME_MESSAGE", "Bot is now online ✅"),
		Reconnect: pkgWhatsApp.ReconnectPolicy{
			Delay:       env.GetEnvDurationOrDefault("WHATSAPP_RECONNECT_DELAY", 3*time.Second),
			MaxAttempts: env.GetEnvIntOrDefault("WHATSAPP_RECONNECT_MAX_ATTEMPTS", 0),
		},
	})
	if err != nil {
		return nil, err
	}

	cfg := bot.LoadConfig()

	moderation := bot.NewModeration()

	registry := bot.NewRegistry()
	registry.Register(bot.CoreCommands()...)
	registry.Register(bot.GroupCommands()...)
	registry.Register(bot.ModerationCommands(moderation)...)
	registry.Register(bot.AICommands()...)
	log.Print(nil).Info("Loaded commands: " + strings.Join(registry.Names(), ", "))

	dispatcher := bot.NewDispatcher(cfg, registry, moderation, session)
	session.OnMessage(dispatcher.HandleMessage)

	if err := session.Connect(); err != nil {
		return nil, err
	}

	return &App{
		Session:    session,
		Config:     cfg,
		Registry:   registry,
		Moderation: moderation,
		Dispatcher: dispatcher,
	}, nil
}
