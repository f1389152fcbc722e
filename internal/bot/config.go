package bot

import (
	"time"

	"github.com/banmd/go-whatsapp-bot/pkg/env"
)

// Config is the bot-level configuration, read from the environment once at
// startup and injected into every invocation.
type Config struct {
	BotName     string
	Prefix      string
	OwnerName   string
	OwnerNumber string

	AliveMessage  string
	AliveImageURL string
	MenuImageURL  string

	AlwaysOnline bool

	HandlerTimeout time.Duration
	RateLimitEvery time.Duration
	RateLimitBurst int

	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
	BingKey     string

	StartedAt time.Time
}

func LoadConfig() *Config {
	return &Config{
		BotName:     env.GetEnvStringOrDefault("BOT_NAME", "BAN-MD Ultimate"),
		Prefix:      env.GetEnvStringOrDefault("BOT_PREFIX", "!"),
		OwnerName:   env.GetEnvStringOrDefault("OWNER_NAME", ""),
		OwnerNumber: env.GetEnvStringOrDefault("OWNER_NUMBER", ""),

		AliveMessage:  env.GetEnvStringOrDefault("ALIVE_MESSAGE", "✅ Yes, I'm alive!"),
		AliveImageURL: env.GetEnvStringOrDefault("ALIVE_IMAGE_URL", ""),
		MenuImageURL:  env.GetEnvStringOrDefault("MENU_IMAGE_URL", ""),

		AlwaysOnline: env.GetEnvBoolOrDefault("ALWAYS_ONLINE", false),

		HandlerTimeout: env.GetEnvDurationOrDefault("BOT_HANDLER_TIMEOUT", 90*time.Second),
		RateLimitEvery: env.GetEnvDurationOrDefault("BOT_RATE_LIMIT_EVERY", time.Second),
		RateLimitBurst: env.GetEnvIntOrDefault("BOT_RATE_LIMIT_BURST", 5),

		OpenAIKey:   env.GetEnvStringOrDefault("OPENAI_API_KEY", ""),
		OpenAIModel: env.GetEnvStringOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiKey:   env.GetEnvStringOrDefault("GEMINI_API_KEY", ""),
		GeminiModel: env.GetEnvStringOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		BingKey:     env.GetEnvStringOrDefault("BING_API_KEY", ""),

		StartedAt: time.Now(),
	}
}
