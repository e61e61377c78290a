// Package reconcile translates realtime events into store mutations.
package reconcile

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/proto"
	"github.com/phucnh/studiochat-client/internal/realtime"
	"github.com/phucnh/studiochat-client/internal/state"
)

// ConversationFetcher refreshes the conversation list from the REST API.
// conversationUpdated events carry no reliably structured payload, so the
// reconciler resyncs in full instead of merging incrementally.
type ConversationFetcher func(ctx context.Context) error

// Reconciler applies inbound realtime events to the two stores. Every
// application is idempotent: replaying an event leaves the stores as they
// were after the first delivery.
type Reconciler struct {
	convs   *state.ConversationList
	msgs    *state.MessageLog
	rt      *realtime.Manager
	refetch ConversationFetcher
	log     *zerolog.Logger
}

// New constructs a reconciler over the given stores and channel.
func New(convs *state.ConversationList, msgs *state.MessageLog, rt *realtime.Manager, refetch ConversationFetcher, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		convs:   convs,
		msgs:    msgs,
		rt:      rt,
		refetch: refetch,
		log:     logger,
	}
}

// Bind subscribes the reconciler to the four inbound event kinds. When the
// channel is not connected this logs and no-ops; connection lifecycle
// belongs to the transport owner, not to this layer.
func (r *Reconciler) Bind(ctx context.Context) {
	if !r.rt.Connected() {
		r.log.Warn().Msg("realtime channel not connected, skipping listener setup")
		return
	}

	r.rt.On(proto.EventNewMessage, func(_ string, data json.RawMessage) {
		r.handleNewMessage(data)
	})
	r.rt.On(proto.EventMessageUpdated, func(_ string, data json.RawMessage) {
		r.handleMessageUpdated(data)
	})
	r.rt.On(proto.EventMessageDeleted, func(_ string, data json.RawMessage) {
		r.handleMessageDeleted(data)
	})
	r.rt.On(proto.EventConversationUpdated, func(_ string, data json.RawMessage) {
		r.handleConversationUpdated(ctx)
	})
}

// ApplyMessage routes one confirmed message into both stores and returns
// the canonical conversation key it landed under. Used for inbound
// newMessage events and for locally sent messages after REST confirmation.
func (r *Reconciler) ApplyMessage(m chat.Message) string {
	key := chat.ConversationKey(m.KeySource())
	if key == "" {
		r.log.Debug().Str("message_id", m.ID).Msg("message without derivable conversation key, dropped")
		return ""
	}

	r.msgs.Append(key, m)

	last := m
	patch := chat.Conversation{
		CanonicalID: key,
		BookingID:   m.BookingID,
		LastMessage: &last,
	}
	for _, ref := range []struct {
		id   string
		user *chat.UserRef
	}{{m.FromUserID, m.FromUser}, {m.ToUserID, m.ToUser}} {
		if ref.id == "" {
			continue
		}
		p := chat.UserRef{ID: ref.id}
		if ref.user != nil {
			p = *ref.user
		}
		patch.Participants = append(patch.Participants, p)
	}

	r.convs.Upsert(key, patch)
	return key
}

func (r *Reconciler) handleNewMessage(data json.RawMessage) {
	m, err := chat.DecodeMessage(data)
	if err != nil {
		r.log.Debug().Err(err).Msg("bad newMessage payload")
		return
	}
	if key := r.ApplyMessage(m); key != "" {
		r.log.Debug().Str("conversation", key).Str("message_id", m.ID).Msg("message reconciled")
	}
}

func (r *Reconciler) handleMessageUpdated(data json.RawMessage) {
	var payload proto.MessageUpdatedData
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == "" {
		r.log.Debug().Msg("bad messageUpdated payload")
		return
	}

	// Message IDs are globally unique; the patch applies wherever the
	// message lives, no conversation key needed.
	found := r.msgs.Update(payload.MessageID, func(m *chat.Message) {
		if payload.Updates.IsRead != nil {
			m.IsRead = *payload.Updates.IsRead
		}
		if payload.Updates.Content != nil {
			m.Content = *payload.Updates.Content
		}
	})
	if !found {
		r.log.Debug().Str("message_id", payload.MessageID).Msg("update for unknown message, ignored")
	}
}

func (r *Reconciler) handleMessageDeleted(data json.RawMessage) {
	id := proto.DecodeMessageDeleted(data)
	if id == "" {
		r.log.Debug().Msg("bad messageDeleted payload")
		return
	}
	if !r.msgs.Remove(id) {
		r.log.Debug().Str("message_id", id).Msg("delete for unknown message, ignored")
	}
}

func (r *Reconciler) handleConversationUpdated(ctx context.Context) {
	if r.refetch == nil {
		return
	}
	go func() {
		if err := r.refetch(ctx); err != nil {
			r.log.Warn().Err(err).Msg("conversation resync failed")
		}
	}()
}
