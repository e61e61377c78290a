// Package state holds the in-memory session stores for the messaging core.
// REST completions and realtime callbacks mutate them from separate
// goroutines; every mutation is one atomic step under the store mutex and
// readers only ever get copies.
package state

import (
	"sync"

	"github.com/phucnh/studiochat-client/internal/chat"
)

// ConversationList is the ordered collection of conversation summaries,
// most recently touched first.
type ConversationList struct {
	mu    sync.Mutex
	items []chat.Conversation
}

// NewConversationList constructs an empty list.
func NewConversationList() *ConversationList {
	return &ConversationList{}
}

// Upsert merges patch into the conversation matching key and moves it to
// the front. A missing conversation is created first (front insert). An
// empty key means the caller could not derive one; the patch is dropped
// rather than indexed under a garbage key.
func (l *ConversationList) Upsert(key string, patch chat.Conversation) {
	if key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.locate(key)
	if idx < 0 {
		idx = l.create(key)
	}

	merge(&l.items[idx], patch)

	// Move to front: activity order, not clock order.
	entry := l.items[idx]
	copy(l.items[1:idx+1], l.items[:idx])
	l.items[0] = entry
}

// GetOrCreate returns a copy of the conversation for key, creating a bare
// front entry when none matches. ok reports whether the entry already
// existed. An empty key never creates anything.
func (l *ConversationList) GetOrCreate(key string) (conv chat.Conversation, ok bool) {
	if key == "" {
		return chat.Conversation{}, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if idx := l.locate(key); idx >= 0 {
		return l.items[idx], true
	}
	idx := l.create(key)
	return l.items[idx], false
}

// ReplaceAll swaps in a freshly fetched conversation list. Each entry's
// canonical key is recomputed; backend-supplied fields are kept as is.
func (l *ConversationList) ReplaceAll(list []chat.Conversation) {
	items := make([]chat.Conversation, 0, len(list))
	for _, c := range list {
		c.CanonicalID = chat.ConversationKey(c.KeySource())
		items = append(items, c)
	}

	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
}

// Get returns a copy of the conversation matching key.
func (l *ConversationList) Get(key string) (chat.Conversation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx := l.locate(key); idx >= 0 {
		return l.items[idx], true
	}
	return chat.Conversation{}, false
}

// Snapshot returns a copy of the list in activity order.
func (l *ConversationList) Snapshot() []chat.Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]chat.Conversation, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of conversations.
func (l *ConversationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// locate finds the entry matching key. The backend is inconsistent about
// which field carries the conversation identifier, so three candidates are
// tried for every entry: the recomputed canonical key, the stored `_id`,
// and the stored `conversationId`. Any one matching is sufficient.
func (l *ConversationList) locate(key string) int {
	for i, c := range l.items {
		if c.CanonicalID == key {
			return i
		}
		if canonical := chat.ConversationKey(c.KeySource()); canonical != "" && canonical == key {
			return i
		}
		if c.RawID != "" && c.RawID == key {
			return i
		}
		if c.ConversationID != "" && c.ConversationID == key {
			return i
		}
	}
	return -1
}

// create inserts a bare entry for key at the front and returns its index.
func (l *ConversationList) create(key string) int {
	l.items = append([]chat.Conversation{{CanonicalID: key}}, l.items...)
	return 0
}

func merge(dst *chat.Conversation, patch chat.Conversation) {
	if patch.CanonicalID != "" {
		dst.CanonicalID = patch.CanonicalID
	}
	if patch.RawID != "" {
		dst.RawID = patch.RawID
	}
	if patch.ConversationID != "" {
		dst.ConversationID = patch.ConversationID
	}
	if patch.BookingID != "" {
		dst.BookingID = patch.BookingID
	}
	if len(patch.Participants) > 0 {
		dst.Participants = patch.Participants
	}
	if patch.LastMessage != nil {
		dst.LastMessage = patch.LastMessage
	}
	if patch.Name != "" {
		dst.Name = patch.Name
	}
	if patch.Avatar != "" {
		dst.Avatar = patch.Avatar
	}
	if patch.UnreadCount != 0 {
		dst.UnreadCount = patch.UnreadCount
	}
}
