package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// This file is the only place raw backend shapes are interpreted. The
// backend is inconsistent about user fields (plain ID vs nested object),
// timestamps (RFC 3339 vs epoch milliseconds) and identifier fields
// (`_id` vs `conversationId`, optional `bookingId`). Everything past this
// boundary works on the normalized domain types.

type flexUser struct {
	ref UserRef
}

func (u *flexUser) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		u.ref = UserRef{ID: strings.TrimSpace(id)}
		return nil
	}
	var obj struct {
		ID     string `json:"_id"`
		AltID  string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	id := obj.ID
	if id == "" {
		id = obj.AltID
	}
	u.ref = UserRef{ID: strings.TrimSpace(id), Name: obj.Name, Avatar: obj.Avatar}
	return nil
}

type flexTime struct {
	t time.Time
}

func (ft *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				ft.t = t
				return nil
			}
		}
		return nil // unparseable timestamps degrade to zero, never fail decode
	}
	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return err
	}
	ft.t = time.UnixMilli(millis).UTC()
	return nil
}

type rawMessage struct {
	ID             string   `json:"_id"`
	AltID          string   `json:"id"`
	ConversationID string   `json:"conversationId"`
	BookingID      string   `json:"bookingId"`
	From           flexUser `json:"fromUserId"`
	To             flexUser `json:"toUserId"`
	Content        string   `json:"content"`
	CreatedAt      flexTime `json:"createdAt"`
	IsRead         bool     `json:"isRead"`
}

func (r rawMessage) domain() Message {
	id := r.ID
	if id == "" {
		id = r.AltID
	}
	m := Message{
		ID:             id,
		ConversationID: r.ConversationID,
		BookingID:      r.BookingID,
		FromUserID:     r.From.ref.ID,
		ToUserID:       r.To.ref.ID,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt.t,
		IsRead:         r.IsRead,
	}
	if r.From.ref.Name != "" || r.From.ref.Avatar != "" {
		from := r.From.ref
		m.FromUser = &from
	}
	if r.To.ref.Name != "" || r.To.ref.Avatar != "" {
		to := r.To.ref
		m.ToUser = &to
	}
	return m
}

type rawConversation struct {
	ID             string      `json:"_id"`
	ConversationID string      `json:"conversationId"`
	BookingID      string      `json:"bookingId"`
	Participants   []flexUser  `json:"participants"`
	Members        []flexUser  `json:"members"`
	LastMessage    *rawMessage `json:"lastMessage"`
	Name           string      `json:"name"`
	Avatar         string      `json:"avatar"`
}

func (r rawConversation) domain() Conversation {
	c := Conversation{
		RawID:          r.ID,
		ConversationID: r.ConversationID,
		BookingID:      r.BookingID,
		Name:           r.Name,
		Avatar:         r.Avatar,
	}
	members := r.Participants
	if len(members) == 0 {
		members = r.Members
	}
	for _, m := range members {
		if m.ref.ID == "" && m.ref.Name == "" {
			continue
		}
		c.Participants = append(c.Participants, m.ref)
	}
	if r.LastMessage != nil {
		last := r.LastMessage.domain()
		c.LastMessage = &last
	}
	c.CanonicalID = ConversationKey(c.KeySource())
	return c
}

// DecodeMessage parses one raw backend message.
func DecodeMessage(data []byte) (Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return raw.domain(), nil
}

// DecodeMessageList parses a message-history payload, accepting either a
// bare array or an object wrapping it under "messages".
func DecodeMessageList(data []byte) ([]Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Messages json.RawMessage `json:"messages"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode message list: %w", err)
		}
		data = wrapper.Messages
	}
	var raws []rawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode message list: %w", err)
	}
	msgs := make([]Message, 0, len(raws))
	for _, r := range raws {
		msgs = append(msgs, r.domain())
	}
	return msgs, nil
}

// DecodeConversation parses one raw backend conversation summary and
// derives its canonical key.
func DecodeConversation(data []byte) (Conversation, error) {
	var raw rawConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	return raw.domain(), nil
}

// DecodeConversationList parses the conversation-list payload.
func DecodeConversationList(data []byte) ([]Conversation, error) {
	var raws []rawConversation
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode conversation list: %w", err)
	}
	convs := make([]Conversation, 0, len(raws))
	for _, r := range raws {
		convs = append(convs, r.domain())
	}
	return convs, nil
}
