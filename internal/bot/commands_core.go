package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CoreCommands returns ping, alive, menu/help and runtime.
func CoreCommands() []Command {
	menu := func(ctx context.Context, inv *Invocation) error {
		var b strings.Builder
		b.WriteString("📜 " + inv.Config.BotName + "\n")
		b.WriteString("Prefix: " + inv.Config.Prefix + "\n")
		if inv.Config.OwnerName != "" {
			b.WriteString("Owner : " + inv.Config.OwnerName + "\n")
		}
		b.WriteString("Uptime: " + formatUptime(time.Since(inv.Config.StartedAt)) + "\n\n")
		b.WriteString("Commands:\n")
		for _, name := range inv.Registry.Names() {
			cmd, ok := inv.Registry.Lookup(name)
			if !ok {
				continue
			}
			b.WriteString(inv.Config.Prefix + name)
			if cmd.Description() != "" {
				b.WriteString(" — " + cmd.Description())
			}
			b.WriteString("\n")
		}
		if inv.Config.MenuImageURL != "" {
			if err := inv.Bot.SendImageURL(ctx, inv.Chat, inv.Config.MenuImageURL, b.String()); err == nil {
				return nil
			}
			// image fetch may fail long after startup; degrade to text
		}
		return inv.Reply(ctx, b.String())
	}

	return []Command{
		NewCommand("ping", "Latency check", "ping",
			func(ctx context.Context, inv *Invocation) error {
				start := time.Now()
				if err := inv.Reply(ctx, "🏓 Pong!"); err != nil {
					return err
				}
				elapsed := time.Since(start).Milliseconds()
				return inv.Reply(ctx, fmt.Sprintf("✅ Alive! Speed: %dms", elapsed))
			}),

		NewCommand("alive", "Bot alive check", "alive",
			func(ctx context.Context, inv *Invocation) error {
				if inv.Config.AliveImageURL != "" {
					if err := inv.Bot.SendImageURL(ctx, inv.Chat, inv.Config.AliveImageURL, inv.Config.AliveMessage); err == nil {
						return nil
					}
				}
				return inv.Reply(ctx, inv.Config.AliveMessage)
			}),

		NewCommand("runtime", "Bot uptime", "runtime",
			func(ctx context.Context, inv *Invocation) error {
				return inv.Reply(ctx, "⏳ Uptime: "+formatUptime(time.Since(inv.Config.StartedAt)))
			}),

		NewCommand("menu", "Show the command menu", "menu", menu),
		NewCommand("help", "List commands", "help", menu),
	}
}

func formatUptime(d time.Duration) string {
	sec := int64(d.Seconds()) % 60
	min := int64(d.Minutes()) % 60
	hrs := int64(d.Hours())
	return fmt.Sprintf("%dh %dm %ds", hrs, min, sec)
}
