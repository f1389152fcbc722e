package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestDispatcher(t *testing.T, cfg *Config) (*Dispatcher, *fakeSender, *Registry, *Moderation) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(CoreCommands()...)
	moderation := NewModeration()
	d := NewDispatcher(cfg, registry, moderation, sender)
	// run handlers inline so assertions see replies immediately
	d.launch = func(fn func()) { fn() }
	return d, sender, registry, moderation
}

func TestHandleMessageIgnoresNonPrefixed(t *testing.T) {
	d, sender, _, _ := newTestDispatcher(t, nil)

	d.HandleMessage(textEvent(testGroup, testUser, "hello everyone", false))

	if got := sender.sentTexts(); len(got) != 0 {
		t.Fatalf("expected no replies, got %v", got)
	}
}

func TestHandleMessageIgnoresOwnMessages(t *testing.T) {
	d, sender, _, _ := newTestDispatcher(t, nil)

	d.HandleMessage(textEvent(testGroup, testUser, "!ping", true))

	if got := sender.sentTexts(); len(got) != 0 {
		t.Fatalf("expected no replies to own message, got %v", got)
	}
}

func TestHandleMessageUnknownCommand(t *testing.T) {
	d, sender, _, _ := newTestDispatcher(t, nil)

	d.HandleMessage(textEvent(testGroup, testUser, "!bogus", false))

	got := sender.sentTexts()
	if len(got) != 1 {
		t.Fatalf("expected one reply, got %d", len(got))
	}
	if got[0].Text != "❓ Unknown command: !bogus" {
		t.Fatalf("unexpected reply: %q", got[0].Text)
	}
}

func TestHandleMessagePing(t *testing.T) {
	d, sender, _, _ := newTestDispatcher(t, nil)

	d.HandleMessage(textEvent(testGroup, testUser, "!ping", false))

	got := sender.sentTexts()
	if len(got) != 2 {
		t.Fatalf("expected pong and speed replies, got %d", len(got))
	}
	if got[0].Text != "🏓 Pong!" {
		t.Fatalf("unexpected first reply: %q", got[0].Text)
	}
	if !strings.HasPrefix(got[1].Text, "✅ Alive! Speed: ") {
		t.Fatalf("unexpected second reply: %q", got[1].Text)
	}
}

func TestHandleMessageCommandNameIsCaseInsensitive(t *testing.T) {
	d, sender, _, _ := newTestDispatcher(t, nil)

	d.HandleMessage(textEvent(testGroup, testUser, "!PiNg", false))

	if got := sender.sentTexts(); len(got) != 2 {
		t.Fatalf("expected ping to run, got %d replies", len(got))
	}
}

func TestHandleMessageHandlerError(t *testing.T) {
	d, sender, registry, _ := newTestDispatcher(t, nil)
	registry.Register(NewCommand("boom", "", "boom",
		func(ctx context.Context, inv *Invocation) error {
			return errors.New("backend down")
		}))

	d.HandleMessage(textEvent(testGroup, testUser, "!boom", false))

	got := sender.sentTexts()
	if len(got) != 1 || got[0].Text != "❌ Error: backend down" {
		t.Fatalf("unexpected replies: %v", got)
	}
}

func TestHandleMessageHandlerPanicIsContained(t *testing.T) {
	d, sender, registry, _ := newTestDispatcher(t, nil)
	registry.Register(NewCommand("crash", "", "crash",
		func(ctx context.Context, inv *Invocation) error {
			panic("nil map write")
		}))

	d.HandleMessage(textEvent(testGroup, testUser, "!crash", false))
	// the dispatcher must survive and keep handling events
	d.HandleMessage(textEvent(testGroup, testUser, "!ping", false))

	got := sender.sentTexts()
	if len(got) != 3 {
		t.Fatalf("expected failure reply plus ping replies, got %d", len(got))
	}
	if got[0].Text != "❌ Something went wrong running that command." {
		t.Fatalf("unexpected panic reply: %q", got[0].Text)
	}
}

func TestHandleMessageSlowHandlerDoesNotBlockOthers(t *testing.T) {
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(CoreCommands()...)
	release := make(chan struct{})
	started := make(chan struct{})
	registry.Register(NewCommand("slow", "", "slow",
		func(ctx context.Context, inv *Invocation) error {
			close(started)
			<-release
			return inv.Reply(ctx, "done")
		}))
	d := NewDispatcher(testConfig(), registry, NewModeration(), sender)
	defer close(release)

	// both events arrive on the same goroutine, the way whatsmeow
	// delivers them
	d.HandleMessage(textEvent(testGroup, testUser, "!slow", false))
	<-started
	d.HandleMessage(textEvent(testGroup, testUser, "!ping", false))

	deadline := time.After(2 * time.Second)
	for len(sender.sentTexts()) < 2 {
		select {
		case <-deadline:
			t.Fatal("ping replies never arrived while the slow handler was in flight")
		case <-time.After(5 * time.Millisecond):
		}
	}
	for _, sent := range sender.sentTexts() {
		if sent.Text == "done" {
			t.Fatal("slow handler finished before release")
		}
	}
}

func TestHandleMessageRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitBurst = 1
	d, sender, registry, _ := newTestDispatcher(t, cfg)
	registry.Register(NewCommand("once", "", "once",
		func(ctx context.Context, inv *Invocation) error {
			return inv.Reply(ctx, "ran")
		}))

	d.HandleMessage(textEvent(testGroup, testUser, "!once", false))
	d.HandleMessage(textEvent(testGroup, testUser, "!once", false))

	if got := sender.sentTexts(); len(got) != 1 {
		t.Fatalf("expected second command to be rate limited, got %d replies", len(got))
	}
}

func TestHandleMessageAntiLinkWarnsThenDispatches(t *testing.T) {
	d, sender, _, moderation := newTestDispatcher(t, nil)
	moderation.SetAntiLink(testGroup.String(), true)

	d.HandleMessage(textEvent(testGroup, testUser, "!ping https://spam.example", false))

	got := sender.sentTexts()
	if len(got) != 3 {
		t.Fatalf("expected warning plus ping replies, got %d", len(got))
	}
	if got[0].Text != "⚠️ "+LinkWarning {
		t.Fatalf("unexpected warning: %q", got[0].Text)
	}
	if got[1].Text != "🏓 Pong!" {
		t.Fatalf("command should still run after the warning, got %q", got[1].Text)
	}
}

func TestHandleMessageAntiLinkDisabledByDefault(t *testing.T) {
	d, sender, _, _ := newTestDispatcher(t, nil)

	d.HandleMessage(textEvent(testGroup, testUser, "look at https://example.com", false))

	if got := sender.sentTexts(); len(got) != 0 {
		t.Fatalf("expected no warning while anti-link is off, got %v", got)
	}
}

func TestExtractTextPrefersConversation(t *testing.T) {
	evt := textEvent(testGroup, testUser, "plain", false)
	if got := extractText(evt); got != "plain" {
		t.Fatalf("extractText = %q", got)
	}

	evt = mentionEvent(testGroup, testUser, "extended", testPeer)
	if got := extractText(evt); got != "extended" {
		t.Fatalf("extractText = %q", got)
	}
}

func TestMentionedJIDs(t *testing.T) {
	evt := mentionEvent(testGroup, testUser, "!kick @peer", testPeer)

	got := mentionedJIDs(evt)
	if len(got) != 1 || got[0] != testPeer {
		t.Fatalf("mentionedJIDs = %v", got)
	}
}
