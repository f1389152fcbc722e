package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/banmd/go-whatsapp-bot/pkg/log"
)

// Dispatcher routes inbound message events to command handlers. Events are
// handled one at a time in arrival order; a failing handler never takes the
// process down with it.
type Dispatcher struct {
	cfg        *Config
	registry   *Registry
	moderation *Moderation
	sender     Sender

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter

	// replaced in tests
	launch func(fn func())
}

func NewDispatcher(cfg *Config, registry *Registry, moderation *Moderation, sender Sender) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		registry:   registry,
		moderation: moderation,
		sender:     sender,
		limiters:   make(map[string]*rate.Limiter),
		launch:     func(fn func()) { go fn() },
	}
}

// HandleMessage processes one inbound event. The moderation hook runs before
// the prefix check and never suppresses command dispatch; that ordering is
// part of the contract, not an accident. Parsing, moderation and lookup stay
// on the event goroutine so dispatch follows arrival order; the handler
// itself runs on its own goroutine, since whatsmeow delivers all events on a
// single goroutine and a slow handler would stall lifecycle events with it.
func (d *Dispatcher) HandleMessage(evt *events.Message) {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe {
		return
	}

	chat := evt.Info.Chat
	text := extractText(evt)
	if text == "" {
		return
	}

	if warning := d.moderation.Check(chat.String(), text); warning != "" {
		d.reply(chat, "⚠️ "+warning)
	}

	if !strings.HasPrefix(text, d.cfg.Prefix) {
		return
	}

	fields := strings.Fields(strings.TrimSpace(strings.TrimPrefix(text, d.cfg.Prefix)))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	if !d.allow(chat.String()) {
		log.Command(name).Warn("Rate limited: " + chat.String())
		return
	}

	cmd, ok := d.registry.Lookup(name)
	if !ok {
		d.reply(chat, "❓ Unknown command: "+d.cfg.Prefix+name)
		return
	}

	inv := &Invocation{
		Chat:      chat,
		Sender:    evt.Info.Sender,
		Args:      args,
		Mentioned: mentionedJIDs(evt),
		Message:   evt,
		Bot:       d.sender,
		Config:    d.cfg,
		Registry:  d.registry,
	}
	d.launch(func() { d.invoke(cmd, inv) })
}

// invoke is the error boundary around a single handler. Panics and errors
// are reported to the chat and logged, never propagated.
func (d *Dispatcher) invoke(cmd Command, inv *Invocation) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Command(cmd.Name()).Error(fmt.Sprintf("panic in handler: %v", rec))
			d.reply(inv.Chat, "❌ Something went wrong running that command.")
		}
	}()

	ctx := context.Background()
	var cancel context.CancelFunc
	if d.cfg.HandlerTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.cfg.HandlerTimeout)
		defer cancel()
	}

	if err := cmd.Execute(ctx, inv); err != nil {
		log.Command(cmd.Name()).WithError(err).Error("Command failed")
		d.reply(inv.Chat, "❌ Error: "+err.Error())
	}
}

// allow enforces the per-chat command rate limit. Burst zero or negative
// disables limiting.
func (d *Dispatcher) allow(chatID string) bool {
	if d.cfg.RateLimitBurst <= 0 {
		return true
	}
	d.limMu.Lock()
	limiter, ok := d.limiters[chatID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(d.cfg.RateLimitEvery), d.cfg.RateLimitBurst)
		d.limiters[chatID] = limiter
	}
	d.limMu.Unlock()
	return limiter.Allow()
}

func (d *Dispatcher) reply(chat types.JID, text string) {
	if err := d.sender.SendText(context.Background(), chat, text); err != nil {
		log.Command("dispatch").WithError(err).Warn("Failed to send reply")
	}
}

// extractText pulls the message body from the first populated field among
// plain text, extended text, image caption and video caption.
func extractText(evt *events.Message) string {
	msg := evt.Message
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil && ext.GetText() != "" {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil && img.GetCaption() != "" {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil && vid.GetCaption() != "" {
		return vid.GetCaption()
	}
	return ""
}

// mentionedJIDs collects the JIDs tagged in the message, if any.
func mentionedJIDs(evt *events.Message) []types.JID {
	ext := evt.Message.GetExtendedTextMessage()
	if ext == nil || ext.GetContextInfo() == nil {
		return nil
	}
	raw := ext.GetContextInfo().GetMentionedJID()
	jids := make([]types.JID, 0, len(raw))
	for _, m := range raw {
		jid, err := types.ParseJID(m)
		if err != nil {
			continue
		}
		jids = append(jids, jid)
	}
	return jids
}
