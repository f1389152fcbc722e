package bot

import (
	"context"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"

	pkgWhatsApp "github.com/banmd/go-whatsapp-bot/pkg/whatsapp"
)

// requireGroup replies with a hint and reports false outside of group chats.
func requireGroup(ctx context.Context, inv *Invocation) bool {
	if inv.IsGroup() {
		return true
	}
	_ = inv.Reply(ctx, "This command works only in groups.")
	return false
}

// parseTargets resolves the affected users: mentions win, otherwise each
// argument is treated as a phone number or raw JID.
func parseTargets(inv *Invocation) []types.JID {
	if len(inv.Mentioned) > 0 {
		return inv.Mentioned
	}
	targets := make([]types.JID, 0, len(inv.Args))
	for _, arg := range inv.Args {
		if strings.ContainsRune(arg, '@') {
			targets = append(targets, pkgWhatsApp.ComposeJID(arg))
			continue
		}
		phone := pkgWhatsApp.DigitsOnly(arg)
		if phone == "" {
			continue
		}
		targets = append(targets, types.NewJID(phone, types.DefaultUserServer))
	}
	return targets
}

func joinJIDs(jids []types.JID) string {
	parts := make([]string, 0, len(jids))
	for _, jid := range jids {
		parts = append(parts, jid.User)
	}
	return strings.Join(parts, ", ")
}

func participantsCommand(name, description, usage, verb string, change whatsmeow.ParticipantChange, done string) Command {
	return NewCommand(name, description, usage,
		func(ctx context.Context, inv *Invocation) error {
			if !requireGroup(ctx, inv) {
				return nil
			}
			targets := parseTargets(inv)
			if len(targets) == 0 {
				return inv.Reply(ctx, "Mention or provide users to "+verb+". Usage: "+inv.Config.Prefix+usage)
			}
			if _, err := inv.Bot.GroupParticipantsUpdate(ctx, inv.Chat, targets, change); err != nil {
				return err
			}
			return inv.Reply(ctx, done+" "+joinJIDs(targets))
		})
}

// GroupCommands returns the group moderation surface: add, kick, promote,
// demote, tagall, mute and unmute.
func GroupCommands() []Command {
	return []Command{
		NewCommand("add", "Add a member to the group", "add <phone>",
			func(ctx context.Context, inv *Invocation) error {
				if !requireGroup(ctx, inv) {
					return nil
				}
				var phone string
				if len(inv.Args) > 0 {
					phone = pkgWhatsApp.DigitsOnly(inv.Args[0])
				}
				if phone == "" {
					return inv.Reply(ctx, "Provide a phone: "+inv.Config.Prefix+"add 256700000000")
				}
				target := types.NewJID(phone, types.DefaultUserServer)
				if _, err := inv.Bot.GroupParticipantsUpdate(ctx, inv.Chat, []types.JID{target}, whatsmeow.ParticipantChangeAdd); err != nil {
					return err
				}
				return inv.Reply(ctx, "✅ Invited: "+phone)
			}),

		participantsCommand("kick", "Remove members from the group", "kick @user", "kick",
			whatsmeow.ParticipantChangeRemove, "🗑️ Removed:"),
		participantsCommand("promote", "Give admin role", "promote @user", "promote",
			whatsmeow.ParticipantChangePromote, "⬆️ Promoted:"),
		participantsCommand("demote", "Remove admin role", "demote @user", "demote",
			whatsmeow.ParticipantChangeDemote, "⬇️ Demoted:"),

		NewCommand("tagall", "Tag every member, optionally with a message", "tagall <text>",
			func(ctx context.Context, inv *Invocation) error {
				if !requireGroup(ctx, inv) {
					return nil
				}
				meta, err := inv.Bot.GroupMetadata(ctx, inv.Chat)
				if err != nil {
					return err
				}
				jids := make([]types.JID, 0, len(meta.Participants))
				var b strings.Builder
				if len(inv.Args) > 0 {
					b.WriteString(strings.Join(inv.Args, " "))
				} else {
					b.WriteString("Tagging all")
				}
				for _, p := range meta.Participants {
					jids = append(jids, p.JID)
					b.WriteString("\n@" + p.JID.User)
				}
				return inv.Bot.SendTextWithMentions(ctx, inv.Chat, b.String(), jids)
			}),

		NewCommand("mute", "Restrict the group to admins", "mute",
			func(ctx context.Context, inv *Invocation) error {
				if !requireGroup(ctx, inv) {
					return nil
				}
				if err := inv.Bot.GroupSetAnnounce(ctx, inv.Chat, true); err != nil {
					return err
				}
				return inv.Reply(ctx, "🔒 Group is now admins-only.")
			}),

		NewCommand("unmute", "Open the group to all members", "unmute",
			func(ctx context.Context, inv *Invocation) error {
				if !requireGroup(ctx, inv) {
					return nil
				}
				if err := inv.Bot.GroupSetAnnounce(ctx, inv.Chat, false); err != nil {
					return err
				}
				return inv.Reply(ctx, "🔓 Group is now open to all.")
			}),
	}
}
