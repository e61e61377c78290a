package chat

import (
	"regexp"
	"sort"
	"strings"
)

// Backend object identifiers are fixed-width hex strings. Pair keys join two
// of them with PairSeparator; legacy payloads sometimes used an underscore.
const (
	objectIDLen   = 24
	PairSeparator = "-"
)

var (
	objectIDRe = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	pairKeyRe  = regexp.MustCompile(`^[0-9a-fA-F]{24}[-_][0-9a-fA-F]{24}$`)
	embeddedRe = regexp.MustCompile(`[0-9a-fA-F]{24}`)
)

// ConversationKey derives the canonical conversation key for a candidate.
// Precedence, first match wins:
//
//  1. booking reference, returned verbatim
//  2. conversationId that is a single object ID, returned verbatim
//  3. conversationId that is already a pair key, separator normalized
//  4. object IDs scraped out of a malformed identifier string
//  5. participant pair
//  6. last-message sender/recipient pair
//
// The result is order independent: the same two users always produce the
// same key regardless of which side reported them first. It never panics;
// an empty string means the candidate is unassignable and must not be
// indexed.
func ConversationKey(src KeySource) string {
	if src.BookingID != "" {
		return src.BookingID
	}

	convID := strings.TrimSpace(src.ConversationID)
	if objectIDRe.MatchString(convID) {
		return convID
	}
	if pairKeyRe.MatchString(convID) {
		return strings.ReplaceAll(convID, "_", PairSeparator)
	}

	// Malformed legacy identifiers occasionally embed the member IDs inside
	// descriptive text. Recover the pair instead of failing.
	for _, blob := range []string{convID, src.RawID} {
		if key := scrapeKey(blob); key != "" {
			return key
		}
	}

	if key := PairKey(participantIDs(src.Participants)...); key != "" {
		return key
	}

	from := strings.TrimSpace(src.FromUserID)
	to := strings.TrimSpace(src.ToUserID)
	if from != "" && to != "" {
		return PairKey(from, to)
	}

	return ""
}

// PairKey joins two or more distinct member identifiers into the canonical
// sorted pair key. Blank entries are dropped; fewer than two distinct
// members yield an empty string.
func PairKey(ids ...string) string {
	distinct := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	if len(distinct) < 2 {
		return ""
	}
	sort.Strings(distinct)
	return strings.Join(distinct, PairSeparator)
}

func scrapeKey(blob string) string {
	if blob == "" || len(blob) <= objectIDLen {
		return ""
	}
	found := embeddedRe.FindAllString(blob, -1)
	if len(found) < 2 {
		return ""
	}
	return PairKey(found...)
}

func participantIDs(participants []UserRef) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// ResolvePartner returns the conversation counterpart of self, drawing on
// participants first, then the last message, then identifiers embedded in
// the conversation key. Display fields are filled in when the source
// carried them. Returns a zero UserRef when no counterpart is derivable.
func ResolvePartner(c Conversation, selfID string) UserRef {
	for _, p := range c.Participants {
		if p.ID != "" && p.ID != selfID {
			return p
		}
	}

	if m := c.LastMessage; m != nil {
		if m.FromUserID != "" && m.FromUserID != selfID {
			if m.FromUser != nil {
				return *m.FromUser
			}
			return UserRef{ID: m.FromUserID}
		}
		if m.ToUserID != "" && m.ToUserID != selfID {
			if m.ToUser != nil {
				return *m.ToUser
			}
			return UserRef{ID: m.ToUserID}
		}
	}

	// Last resort: pull member IDs back out of the key itself. Only pair
	// keys carry that information; booking keys do not name members.
	for _, key := range []string{c.CanonicalID, c.ConversationID, c.RawID} {
		for _, id := range embeddedRe.FindAllString(key, -1) {
			if id != selfID {
				return UserRef{ID: id}
			}
		}
	}

	return UserRef{}
}
