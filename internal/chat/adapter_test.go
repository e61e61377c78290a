package chat

import (
	"testing"
	"time"
)

func TestDecodeMessagePlainIdentifiers(t *testing.T) {
	data := []byte(`{
		"_id": "m1",
		"fromUserId": "` + u1 + `",
		"toUserId": "` + u2 + `",
		"content": "hello",
		"createdAt": "2026-03-01T10:00:00Z",
		"isRead": false
	}`)

	m, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ID != "m1" || m.FromUserID != u1 || m.ToUserID != u2 {
		t.Fatalf("unexpected message %+v", m)
	}
	if m.FromUser != nil || m.ToUser != nil {
		t.Fatalf("plain IDs must not produce nested refs: %+v", m)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !m.CreatedAt.Equal(want) {
		t.Fatalf("unexpected createdAt %v", m.CreatedAt)
	}
}

func TestDecodeMessageNestedUsersAndEpochMillis(t *testing.T) {
	data := []byte(`{
		"id": "m2",
		"fromUserId": {"_id": "` + u1 + `", "name": "Alice", "avatar": "a.png"},
		"toUserId": {"id": "` + u2 + `", "name": "Bob"},
		"content": "hi",
		"createdAt": 1767261600000
	}`)

	m, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ID != "m2" {
		t.Fatalf("alternate id field not picked up: %+v", m)
	}
	if m.FromUserID != u1 || m.ToUserID != u2 {
		t.Fatalf("nested refs not flattened: %+v", m)
	}
	if m.FromUser == nil || m.FromUser.Name != "Alice" || m.FromUser.Avatar != "a.png" {
		t.Fatalf("display fields lost: %+v", m.FromUser)
	}
	if m.CreatedAt.IsZero() {
		t.Fatal("epoch millis timestamp not parsed")
	}
}

func TestDecodeMessageUnparsableTimestampDegrades(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"_id": "m3", "createdAt": "yesterday-ish"}`))
	if err != nil {
		t.Fatalf("decode must not fail on bad timestamps: %v", err)
	}
	if !m.CreatedAt.IsZero() {
		t.Fatalf("expected zero time, got %v", m.CreatedAt)
	}
}

func TestDecodeMessageListWrappedAndBare(t *testing.T) {
	bare := []byte(`[{"_id": "m1", "content": "a"}, {"_id": "m2", "content": "b"}]`)
	wrapped := []byte(`{"messages": ` + string(bare) + `}`)

	for _, payload := range [][]byte{bare, wrapped} {
		msgs, err := DecodeMessageList(payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
			t.Fatalf("unexpected list %+v", msgs)
		}
	}
}

func TestDecodeConversationDerivesCanonicalKey(t *testing.T) {
	data := []byte(`{
		"_id": "whatever",
		"participants": [{"_id": "` + u2 + `", "name": "Bob"}, "` + u1 + `"],
		"lastMessage": {"_id": "m1", "fromUserId": "` + u1 + `", "toUserId": "` + u2 + `", "content": "yo"}
	}`)

	c, err := DecodeConversation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.CanonicalID != u1+"-"+u2 {
		t.Fatalf("unexpected canonical key %q", c.CanonicalID)
	}
	if len(c.Participants) != 2 || c.Participants[0].Name != "Bob" {
		t.Fatalf("participants lost: %+v", c.Participants)
	}
	if c.LastMessage == nil || c.LastMessage.Content != "yo" {
		t.Fatalf("last message lost: %+v", c.LastMessage)
	}
}

func TestDecodeConversationBookingScoped(t *testing.T) {
	data := []byte(`{"_id": "x", "bookingId": "booking123", "members": ["` + u1 + `", "` + u2 + `"]}`)

	c, err := DecodeConversation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.CanonicalID != "booking123" {
		t.Fatalf("booking conversations must key by booking ID, got %q", c.CanonicalID)
	}
	if len(c.Participants) != 2 {
		t.Fatalf("members alias not honored: %+v", c.Participants)
	}
}
