package bot

import (
	"regexp"
	"sync"
)

// Hook is a pluggable moderation check run on every inbound message before
// the prefix check. A non-empty return value is sent back to the chat as a
// warning; dispatch of the message continues either way.
type Hook func(chatID string, text string) string

// WarnLimit is the number of warnings that triggers a removal attempt.
const WarnLimit = 3

// LinkWarning is the fixed warning returned by the built-in anti-link hook.
const LinkWarning = "Links are not allowed in this group."

var linkPattern = regexp.MustCompile(`(?i)https?://`)

type warnKey struct {
	Chat string
	User string
}

// Moderation holds the pluggable hook, the per-chat anti-link flags and the
// per-(chat,user) warn counters. All maps are mutex-guarded: handlers for
// different chats run on the event goroutine today, but nothing in the
// dispatch contract promises that stays true.
type Moderation struct {
	mu       sync.Mutex
	hook     Hook
	antiLink map[string]bool
	warns    map[warnKey]int
}

func NewModeration() *Moderation {
	m := &Moderation{
		antiLink: make(map[string]bool),
		warns:    make(map[warnKey]int),
	}
	m.hook = m.AntiLinkHook
	return m
}

// SetHook replaces the moderation hook. Last registration wins; a nil hook
// keeps the current one.
func (m *Moderation) SetHook(h Hook) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.hook = h
	m.mu.Unlock()
}

// Check runs the registered hook. Without one it always passes.
func (m *Moderation) Check(chatID string, text string) string {
	m.mu.Lock()
	hook := m.hook
	m.mu.Unlock()
	if hook == nil {
		return ""
	}
	return hook(chatID, text)
}

// AntiLinkHook is the built-in reference hook: warn when the chat has
// anti-link enabled and the text contains an HTTP or HTTPS URL.
func (m *Moderation) AntiLinkHook(chatID string, text string) string {
	if !m.AntiLinkEnabled(chatID) {
		return ""
	}
	if linkPattern.MatchString(text) {
		return LinkWarning
	}
	return ""
}

func (m *Moderation) SetAntiLink(chatID string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		m.antiLink[chatID] = true
	} else {
		delete(m.antiLink, chatID)
	}
}

func (m *Moderation) AntiLinkEnabled(chatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.antiLink[chatID]
}

// AddWarn increments the warn counter for (chat, user) and returns the new
// count. The read-modify-write is atomic per key.
func (m *Moderation) AddWarn(chatID string, userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := warnKey{Chat: chatID, User: userID}
	m.warns[key]++
	return m.warns[key]
}

// ClearWarn removes the counter entry entirely; a cleared user is absent
// from the map, never present with value zero.
func (m *Moderation) ClearWarn(chatID string, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.warns, warnKey{Chat: chatID, User: userID})
}

// WarnCount returns the current counter, zero when untracked.
func (m *Moderation) WarnCount(chatID string, userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warns[warnKey{Chat: chatID, User: userID}]
}
