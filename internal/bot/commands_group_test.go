package bot

import (
	"context"
	"strings"
	"testing"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
)

func groupInvocation(sender *fakeSender, registry *Registry) *Invocation {
	return &Invocation{
		Chat:     testGroup,
		Sender:   testUser,
		Bot:      sender,
		Config:   testConfig(),
		Registry: registry,
	}
}

func TestGroupCommandsRejectDirectChats(t *testing.T) {
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(GroupCommands()...)

	for _, name := range []string{"kick", "promote", "demote", "add", "tagall", "mute", "unmute"} {
		cmd, ok := registry.Lookup(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		inv := groupInvocation(sender, registry)
		inv.Chat = testPeer // a direct chat
		if err := cmd.Execute(context.Background(), inv); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}

	if len(sender.participantCalls) != 0 || len(sender.announceCalls) != 0 {
		t.Fatal("group operations ran outside a group")
	}
	for _, sent := range sender.sentTexts() {
		if sent.Text != "This command works only in groups." {
			t.Fatalf("unexpected reply: %q", sent.Text)
		}
	}
}

func TestKickUsesMentionedTargets(t *testing.T) {
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(GroupCommands()...)

	cmd, _ := registry.Lookup("kick")
	inv := groupInvocation(sender, registry)
	inv.Mentioned = []types.JID{testPeer}

	if err := cmd.Execute(context.Background(), inv); err != nil {
		t.Fatal(err)
	}

	if len(sender.participantCalls) != 1 {
		t.Fatalf("participant calls = %d", len(sender.participantCalls))
	}
	call := sender.participantCalls[0]
	if call.Change != whatsmeow.ParticipantChangeRemove {
		t.Fatalf("change = %v", call.Change)
	}
	if call.Participants[0] != testPeer {
		t.Fatalf("target = %v", call.Participants[0])
	}
}

func TestKickParsesPhoneArguments(t *testing.T) {
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(GroupCommands()...)

	cmd, _ := registry.Lookup("kick")
	inv := groupInvocation(sender, registry)
	inv.Args = []string{"+256 700-000-002"}

	if err := cmd.Execute(context.Background(), inv); err != nil {
		t.Fatal(err)
	}

	call := sender.participantCalls[0]
	if call.Participants[0] != testPeer {
		t.Fatalf("target = %v, want %v", call.Participants[0], testPeer)
	}
}

func TestKickWithoutTargetsReplies(t *testing.T) {
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(GroupCommands()...)

	cmd, _ := registry.Lookup("kick")
	if err := cmd.Execute(context.Background(), groupInvocation(sender, registry)); err != nil {
		t.Fatal(err)
	}

	if len(sender.participantCalls) != 0 {
		t.Fatal("kick ran without targets")
	}
	got := sender.sentTexts()
	if len(got) != 1 || !strings.Contains(got[0].Text, "Usage:") {
		t.Fatalf("unexpected reply: %v", got)
	}
}

func TestTagallMentionsEveryParticipant(t *testing.T) {
	sender := &fakeSender{
		metadata: &types.GroupInfo{
			Participants: []types.GroupParticipant{
				{JID: testUser},
				{JID: testPeer},
			},
		},
	}
	registry := NewRegistry()
	registry.Register(GroupCommands()...)

	cmd, _ := registry.Lookup("tagall")
	inv := groupInvocation(sender, registry)
	inv.Args = []string{"meeting", "now"}

	if err := cmd.Execute(context.Background(), inv); err != nil {
		t.Fatal(err)
	}

	if len(sender.mentionTexts) != 1 {
		t.Fatalf("mention sends = %d", len(sender.mentionTexts))
	}
	sent := sender.mentionTexts[0]
	if len(sent.Mentions) != 2 {
		t.Fatalf("mentions = %v", sent.Mentions)
	}
	if !strings.HasPrefix(sent.Text, "meeting now") {
		t.Fatalf("text = %q", sent.Text)
	}
	if !strings.Contains(sent.Text, "@"+testPeer.User) {
		t.Fatalf("text missing mention line: %q", sent.Text)
	}
}

func TestMuteTogglesAnnounce(t *testing.T) {
	sender := &fakeSender{}
	registry := NewRegistry()
	registry.Register(GroupCommands()...)

	mute, _ := registry.Lookup("mute")
	unmute, _ := registry.Lookup("unmute")

	if err := mute.Execute(context.Background(), groupInvocation(sender, registry)); err != nil {
		t.Fatal(err)
	}
	if err := unmute.Execute(context.Background(), groupInvocation(sender, registry)); err != nil {
		t.Fatal(err)
	}

	if len(sender.announceCalls) != 2 || !sender.announceCalls[0] || sender.announceCalls[1] {
		t.Fatalf("announce calls = %v", sender.announceCalls)
	}
}
