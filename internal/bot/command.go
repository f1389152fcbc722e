package bot

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// Sender is the slice of the WhatsApp session that command handlers are
// allowed to touch. The real implementation lives in pkg/whatsapp; tests use
// a recording fake.
type Sender interface {
	SendText(ctx context.Context, chat types.JID, text string) error
	SendTextWithMentions(ctx context.Context, chat types.JID, text string, mentions []types.JID) error
	SendImageURL(ctx context.Context, chat types.JID, url string, caption string) error
	GroupParticipantsUpdate(ctx context.Context, group types.JID, participants []types.JID, change whatsmeow.ParticipantChange) ([]types.GroupParticipant, error)
	GroupMetadata(ctx context.Context, group types.JID) (*types.GroupInfo, error)
	GroupSetAnnounce(ctx context.Context, group types.JID, announce bool) error
}

// Invocation bundles everything a handler needs for one command call.
type Invocation struct {
	Chat      types.JID
	Sender    types.JID
	Args      []string
	Mentioned []types.JID
	Message   *events.Message
	Bot       Sender
	Config    *Config
	Registry  *Registry
}

func (inv *Invocation) IsGroup() bool {
	return inv.Chat.Server == types.GroupServer
}

// Reply sends a text message back to the originating chat.
func (inv *Invocation) Reply(ctx context.Context, text string) error {
	return inv.Bot.SendText(ctx, inv.Chat, text)
}

// Command is a statically declared chat command.
type Command interface {
	Name() string
	Description() string
	Usage() string
	Execute(ctx context.Context, inv *Invocation) error
}

type command struct {
	name        string
	description string
	usage       string
	fn          func(ctx context.Context, inv *Invocation) error
}

func (c *command) Name() string        { return c.name }
func (c *command) Description() string { return c.description }
func (c *command) Usage() string       { return c.usage }
func (c *command) Execute(ctx context.Context, inv *Invocation) error {
	return c.fn(ctx, inv)
}

// NewCommand builds a command from a handler func. Most commands are plain
// closures; stateful ones (moderation) capture their store.
func NewCommand(name, description, usage string, fn func(ctx context.Context, inv *Invocation) error) Command {
	return &command{name: name, description: description, usage: usage, fn: fn}
}

// Registry is the name-keyed command table. Lookups are case-insensitive;
// registration of a duplicate name overwrites the earlier entry.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds commands to the table. Entries with an empty name or nil
// handler are silently skipped; on collision the last registration wins.
func (r *Registry) Register(cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(cmd.Name()))
		if name == "" {
			continue
		}
		r.commands[name] = cmd
	}
}

func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}
