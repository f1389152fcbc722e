package bot

import (
	"context"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// fakeSender records every outbound call so tests can assert on what a
// command or the dispatcher actually sent.
type fakeSender struct {
	mu sync.Mutex

	texts            []fakeText
	mentionTexts     []fakeMentionText
	images           []fakeImage
	participantCalls []fakeParticipantCall
	announceCalls    []bool

	sendErr        error
	participantErr error
	metadata       *types.GroupInfo
	metadataErr    error
}

type fakeText struct {
	Chat types.JID
	Text string
}

type fakeMentionText struct {
	Chat     types.JID
	Text     string
	Mentions []types.JID
}

type fakeImage struct {
	Chat    types.JID
	URL     string
	Caption string
}

type fakeParticipantCall struct {
	Group        types.JID
	Participants []types.JID
	Change       whatsmeow.ParticipantChange
}

func (f *fakeSender) SendText(ctx context.Context, chat types.JID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.texts = append(f.texts, fakeText{Chat: chat, Text: text})
	return nil
}

func (f *fakeSender) SendTextWithMentions(ctx context.Context, chat types.JID, text string, mentions []types.JID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mentionTexts = append(f.mentionTexts, fakeMentionText{Chat: chat, Text: text, Mentions: mentions})
	return nil
}

func (f *fakeSender) SendImageURL(ctx context.Context, chat types.JID, url string, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.images = append(f.images, fakeImage{Chat: chat, URL: url, Caption: caption})
	return nil
}

func (f *fakeSender) GroupParticipantsUpdate(ctx context.Context, group types.JID, participants []types.JID, change whatsmeow.ParticipantChange) ([]types.GroupParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.participantErr != nil {
		return nil, f.participantErr
	}
	f.participantCalls = append(f.participantCalls, fakeParticipantCall{Group: group, Participants: participants, Change: change})
	return nil, nil
}

func (f *fakeSender) GroupMetadata(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return f.metadata, nil
}

func (f *fakeSender) GroupSetAnnounce(ctx context.Context, group types.JID, announce bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announceCalls = append(f.announceCalls, announce)
	return nil
}

func (f *fakeSender) sentTexts() []fakeText {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeText, len(f.texts))
	copy(out, f.texts)
	return out
}

var (
	testGroup = types.NewJID("1203630000000000", types.GroupServer)
	testUser  = types.NewJID("256700000001", types.DefaultUserServer)
	testPeer  = types.NewJID("256700000002", types.DefaultUserServer)
)

func testConfig() *Config {
	return &Config{
		BotName:        "testbot",
		Prefix:         "!",
		HandlerTimeout: 5 * time.Second,
		RateLimitEvery: time.Second,
		RateLimitBurst: 10,
		StartedAt:      time.Now(),
	}
}

func textEvent(chat types.JID, sender types.JID, text string, fromMe bool) *events.Message {
	evt := &events.Message{
		Message: &waE2E.Message{Conversation: proto.String(text)},
	}
	evt.Info.Chat = chat
	evt.Info.Sender = sender
	evt.Info.IsFromMe = fromMe
	evt.Info.Timestamp = time.Now()
	return evt
}

func mentionEvent(chat types.JID, sender types.JID, text string, mentions ...types.JID) *events.Message {
	raw := make([]string, 0, len(mentions))
	for _, m := range mentions {
		raw = append(raw, m.String())
	}
	evt := &events.Message{
		Message: &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text:        proto.String(text),
				ContextInfo: &waE2E.ContextInfo{MentionedJID: raw},
			},
		},
	}
	evt.Info.Chat = chat
	evt.Info.Sender = sender
	evt.Info.Timestamp = time.Now()
	return evt
}
