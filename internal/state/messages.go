package state

import (
	"sync"

	"github.com/phucnh/studiochat-client/internal/chat"
)

// MessageLog maps canonical conversation keys to ordered message
// sequences. Within one sequence message IDs are unique: re-inserting an
// existing ID overwrites the stored copy in place without moving it, which
// is what makes replayed realtime events and REST/socket races harmless.
type MessageLog struct {
	mu     sync.Mutex
	byConv map[string][]chat.Message

	// Fetch tickets guard against a slow history fetch overwriting newer
	// state: Replace only applies when its ticket is newer than the last
	// one applied for that conversation.
	nextTicket map[string]uint64
	applied    map[string]uint64
}

// NewMessageLog constructs an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{
		byConv:     make(map[string][]chat.Message),
		nextTicket: make(map[string]uint64),
		applied:    make(map[string]uint64),
	}
}

// Append adds msg to the conversation sequence for key, or overwrites the
// stored copy when the ID is already present. Position is fixed by first
// arrival; only content is replaced. Messages without an ID or key are
// dropped.
func (l *MessageLog) Append(key string, msg chat.Message) {
	if key == "" || msg.ID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.byConv[key]
	for i, existing := range seq {
		if existing.ID == msg.ID {
			seq[i] = msg
			return
		}
	}
	l.byConv[key] = append(seq, msg)
}

// BeginFetch issues a monotonic ticket for a history fetch of key. Pass it
// to Replace when the fetch resolves.
func (l *MessageLog) BeginFetch(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextTicket[key]++
	return l.nextTicket[key]
}

// Replace swaps in a fetched history for key. Returns false without
// touching state when a newer fetch already landed.
func (l *MessageLog) Replace(key string, msgs []chat.Message, ticket uint64) bool {
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if ticket <= l.applied[key] {
		return false
	}
	l.applied[key] = ticket

	seq := make([]chat.Message, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		seq = append(seq, m)
	}
	l.byConv[key] = seq
	return true
}

// MarkRead flips the read flag of the message with id, wherever it lives.
// Message IDs are globally unique, so no conversation key is needed.
// Returns false when the ID is unknown.
func (l *MessageLog) MarkRead(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, seq := range l.byConv {
		for i := range seq {
			if seq[i].ID == id {
				seq[i].IsRead = true
				l.byConv[key] = seq
				return true
			}
		}
	}
	return false
}

// Update applies patch to the message with id across all conversations.
// Returns false when the ID is unknown.
func (l *MessageLog) Update(id string, patch func(*chat.Message)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, seq := range l.byConv {
		for i := range seq {
			if seq[i].ID == id {
				patch(&seq[i])
				return true
			}
		}
	}
	return false
}

// Remove deletes the message with id from whichever conversation holds it.
// Returns false when the ID is unknown.
func (l *MessageLog) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, seq := range l.byConv {
		for i := range seq {
			if seq[i].ID == id {
				l.byConv[key] = append(seq[:i:i], seq[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Messages returns a copy of the sequence for key, in arrival order.
func (l *MessageLog) Messages(key string) []chat.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.byConv[key]
	out := make([]chat.Message, len(seq))
	copy(out, seq)
	return out
}

// UnreadCount counts messages addressed to selfID that are still unread.
func (l *MessageLog) UnreadCount(key, selfID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, m := range l.byConv[key] {
		if !m.IsRead && m.ToUserID == selfID {
			n++
		}
	}
	return n
}
