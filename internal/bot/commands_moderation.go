package bot

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
)

// ModerationCommands returns antilink and warn, both backed by the given
// moderation store.
func ModerationCommands(m *Moderation) []Command {
	return []Command{
		NewCommand("antilink", "Toggle anti-link in this group", "antilink on|off",
			func(ctx context.Context, inv *Invocation) error {
				if !requireGroup(ctx, inv) {
					return nil
				}
				var state string
				if len(inv.Args) > 0 {
					state = strings.ToLower(inv.Args[0])
				}
				switch state {
				case "on":
					m.SetAntiLink(inv.Chat.String(), true)
				case "off":
					m.SetAntiLink(inv.Chat.String(), false)
				case "":
					// fall through to report the current state
				default:
					return inv.Reply(ctx, "Usage: "+inv.Config.Prefix+"antilink on|off")
				}
				if m.AntiLinkEnabled(inv.Chat.String()) {
					return inv.Reply(ctx, "🔗 Anti-link is now ON.")
				}
				return inv.Reply(ctx, "🔗 Anti-link is now OFF.")
			}),

		NewCommand("warn", "Warn a user; three warnings remove them", "warn @user",
			func(ctx context.Context, inv *Invocation) error {
				if !requireGroup(ctx, inv) {
					return nil
				}
				if len(inv.Mentioned) == 0 {
					return inv.Reply(ctx, "Mention a user to warn: "+inv.Config.Prefix+"warn @user")
				}
				target := inv.Mentioned[0]
				count := m.AddWarn(inv.Chat.String(), target.String())

				if err := inv.Reply(ctx, fmt.Sprintf("⚠️ @%s warned (%d/%d).", target.User, count, WarnLimit)); err != nil {
					return err
				}
				if count < WarnLimit {
					return nil
				}

				// Threshold reached: one removal attempt. On failure the
				// counter stays at the limit so the next warn retries the
				// removal instead of restarting the count.
				if _, err := inv.Bot.GroupParticipantsUpdate(ctx, inv.Chat, []types.JID{target}, whatsmeow.ParticipantChangeRemove); err != nil {
					return fmt.Errorf("tried to remove @%s but failed: %w", target.User, err)
				}
				m.ClearWarn(inv.Chat.String(), target.String())
				return inv.Reply(ctx, fmt.Sprintf("🚫 @%s removed for exceeding warnings.", target.User))
			}),
	}
}
