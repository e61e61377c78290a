package chat

import "time"

// UserRef is a possibly partial reference to a platform user. The backend
// sometimes sends a bare identifier and sometimes a nested object with
// display fields; either way it arrives here as a UserRef.
type UserRef struct {
	ID     string
	Name   string
	Avatar string
}

// Message is the domain model for a single chat message.
type Message struct {
	ID             string
	ConversationID string // as reported by the backend, not trusted verbatim
	BookingID      string
	FromUserID     string
	ToUserID       string
	FromUser       *UserRef
	ToUser         *UserRef
	Content        string
	CreatedAt      time.Time
	IsRead         bool
}

// Conversation is a summary entry in the conversation list.
type Conversation struct {
	// CanonicalID is the derived key both stores index by. Empty means
	// the conversation could not be assigned a key and must not be indexed.
	CanonicalID    string
	RawID          string // backend `_id` field as received
	ConversationID string // backend `conversationId` field as received
	BookingID      string
	Participants   []UserRef
	LastMessage    *Message
	Name           string // partner display name for list previews
	Avatar         string
	UnreadCount    int
}

// KeySource collects the fields the canonical-key derivation looks at.
// Both conversations and messages reduce to one of these.
type KeySource struct {
	BookingID      string
	ConversationID string
	RawID          string
	Participants   []UserRef
	FromUserID     string
	ToUserID       string
}

// KeySource reduces a message to its key-derivation inputs.
func (m Message) KeySource() KeySource {
	return KeySource{
		BookingID:      m.BookingID,
		ConversationID: m.ConversationID,
		FromUserID:     m.FromUserID,
		ToUserID:       m.ToUserID,
	}
}

// KeySource reduces a conversation summary to its key-derivation inputs.
func (c Conversation) KeySource() KeySource {
	src := KeySource{
		BookingID:      c.BookingID,
		ConversationID: c.ConversationID,
		RawID:          c.RawID,
		Participants:   c.Participants,
	}
	if c.LastMessage != nil {
		src.FromUserID = c.LastMessage.FromUserID
		src.ToUserID = c.LastMessage.ToUserID
	}
	return src
}
