package chat

import (
	"strings"
	"testing"
)

const (
	u1 = "aaaaaaaaaaaaaaaaaaaaaaaa"
	u2 = "bbbbbbbbbbbbbbbbbbbbbbbb"
	u3 = "cccccccccccccccccccccccc"
)

func TestConversationKeyPairIsOrderIndependent(t *testing.T) {
	ab := ConversationKey(KeySource{Participants: []UserRef{{ID: u1}, {ID: u2}}})
	ba := ConversationKey(KeySource{Participants: []UserRef{{ID: u2}, {ID: u1}}})

	if ab == "" || ab != ba {
		t.Fatalf("pair key not order independent: %q vs %q", ab, ba)
	}
	if ab != u1+"-"+u2 {
		t.Fatalf("unexpected pair key %q", ab)
	}
}

func TestConversationKeyBookingPrecedence(t *testing.T) {
	src := KeySource{
		BookingID:    "booking123",
		Participants: []UserRef{{ID: u1}, {ID: u2}},
		FromUserID:   u1,
		ToUserID:     u2,
	}
	if got := ConversationKey(src); got != "booking123" {
		t.Fatalf("booking ID must win, got %q", got)
	}
}

func TestConversationKeySingleEntityID(t *testing.T) {
	if got := ConversationKey(KeySource{ConversationID: u3}); got != u3 {
		t.Fatalf("single object ID must pass through verbatim, got %q", got)
	}
}

func TestConversationKeySeparatorRoundTrip(t *testing.T) {
	underscore := ConversationKey(KeySource{ConversationID: u1 + "_" + u2})
	dash := ConversationKey(KeySource{ConversationID: u1 + "-" + u2})

	if underscore != dash {
		t.Fatalf("separator variants must agree: %q vs %q", underscore, dash)
	}
	if underscore != u1+"-"+u2 {
		t.Fatalf("unexpected key %q", underscore)
	}
}

func TestConversationKeyScrapesMalformedIdentifier(t *testing.T) {
	blob := "ObjectId('" + u2 + "') to ObjectId('" + u1 + "') legacy thread"

	for _, src := range []KeySource{
		{ConversationID: blob},
		{RawID: blob},
	} {
		if got := ConversationKey(src); got != u1+"-"+u2 {
			t.Fatalf("scrape failed for %+v: got %q", src, got)
		}
	}
}

func TestConversationKeyParticipantsTrimmedAndDeduped(t *testing.T) {
	src := KeySource{Participants: []UserRef{
		{ID: "  " + u2 + " "},
		{ID: u2},
		{ID: u1},
	}}
	if got := ConversationKey(src); got != u1+"-"+u2 {
		t.Fatalf("got %q", got)
	}
}

func TestConversationKeyLastMessageFallback(t *testing.T) {
	src := KeySource{FromUserID: " " + u2 + " ", ToUserID: u1}
	if got := ConversationKey(src); got != u1+"-"+u2 {
		t.Fatalf("got %q", got)
	}
}

func TestConversationKeyUnassignable(t *testing.T) {
	cases := []KeySource{
		{},
		{ConversationID: "short"},
		{Participants: []UserRef{{ID: u1}}},
		{Participants: []UserRef{{ID: u1}, {ID: u1}}},
		{FromUserID: u1},
		{RawID: u1}, // single embedded ID is not enough for a pair
	}
	for i, src := range cases {
		if got := ConversationKey(src); got != "" {
			t.Fatalf("case %d: expected empty key, got %q", i, got)
		}
	}
}

func TestConversationKeyNeverPanics(t *testing.T) {
	weird := KeySource{
		ConversationID: strings.Repeat("-_", 40),
		RawID:          "{{{]]]",
		Participants:   []UserRef{{}, {ID: "   "}},
	}
	if got := ConversationKey(weird); got != "" {
		t.Fatalf("expected empty key for garbage input, got %q", got)
	}
}

func TestResolvePartnerFromParticipants(t *testing.T) {
	conv := Conversation{Participants: []UserRef{{ID: u1, Name: "Alice"}, {ID: u2, Name: "Bob"}}}

	p := ResolvePartner(conv, u1)
	if p.ID != u2 || p.Name != "Bob" {
		t.Fatalf("unexpected partner %+v", p)
	}
}

func TestResolvePartnerFromLastMessage(t *testing.T) {
	conv := Conversation{
		LastMessage: &Message{
			FromUserID: u2,
			ToUserID:   u1,
			FromUser:   &UserRef{ID: u2, Name: "Bob"},
		},
	}
	p := ResolvePartner(conv, u1)
	if p.ID != u2 || p.Name != "Bob" {
		t.Fatalf("unexpected partner %+v", p)
	}
}

func TestResolvePartnerFromEmbeddedKey(t *testing.T) {
	conv := Conversation{CanonicalID: u1 + "-" + u2}
	if p := ResolvePartner(conv, u1); p.ID != u2 {
		t.Fatalf("unexpected partner %+v", p)
	}
}

func TestResolvePartnerUnresolvable(t *testing.T) {
	conv := Conversation{CanonicalID: "booking123"}
	if p := ResolvePartner(conv, u1); p.ID != "" {
		t.Fatalf("expected no partner, got %+v", p)
	}
}
