// Package messenger coordinates the messaging operations the UI layer
// dispatches: sending, history fetches, read receipts and deletes. It sits
// on top of the REST client, the in-memory stores and the realtime channel.
package messenger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/phucnh/studiochat-client/internal/api"
	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/proto"
	"github.com/phucnh/studiochat-client/internal/realtime"
	"github.com/phucnh/studiochat-client/internal/reconcile"
	"github.com/phucnh/studiochat-client/internal/state"
)

// SendState tracks the most recent send operation.
type SendState int32

const (
	SendIdle SendState = iota
	SendSending
	SendSent
	SendFailed
)

func (s SendState) String() string {
	switch s {
	case SendSending:
		return "sending"
	case SendSent:
		return "sent"
	case SendFailed:
		return "failed"
	default:
		return "idle"
	}
}

// TokenSource supplies the current bearer token; empty means the user is
// not authenticated.
type TokenSource interface {
	Token() string
}

// Service exposes the messaging operations.
type Service struct {
	api    *api.Client
	convs  *state.ConversationList
	msgs   *state.MessageLog
	rt     *realtime.Manager
	rec    *reconcile.Reconciler
	tokens TokenSource
	self   chat.UserRef
	log    *zerolog.Logger

	sendState atomic.Int32
}

// New constructs the messenger service. self identifies the local user for
// partner resolution and unread counting.
func New(apiClient *api.Client, convs *state.ConversationList, msgs *state.MessageLog, rt *realtime.Manager, rec *reconcile.Reconciler, tokens TokenSource, self chat.UserRef, logger *zerolog.Logger) *Service {
	return &Service{
		api:    apiClient,
		convs:  convs,
		msgs:   msgs,
		rt:     rt,
		rec:    rec,
		tokens: tokens,
		self:   self,
		log:    logger,
	}
}

// SendState reports where the most recent send operation got to.
func (s *Service) SendState() SendState {
	return SendState(s.sendState.Load())
}

// Send pushes one message end to end: REST create, then local store
// application, then a best-effort emit over the realtime channel so the
// recipient's session picks it up without polling. Nothing is inserted
// locally before the REST acknowledgment, so a failed send leaves no
// state behind. Failed sends are not retried here; the caller re-issues.
func (s *Service) Send(ctx context.Context, toUserID, content string) (chat.Message, error) {
	if s.tokens.Token() == "" {
		s.sendState.Store(int32(SendFailed))
		return chat.Message{}, chat.ErrNotAuthenticated
	}
	if toUserID == "" {
		s.sendState.Store(int32(SendFailed))
		return chat.Message{}, chat.ErrNoRecipient
	}

	s.sendState.Store(int32(SendSending))

	msg, err := s.api.SendMessage(ctx, toUserID, content)
	if err != nil {
		s.sendState.Store(int32(SendFailed))
		return chat.Message{}, err
	}

	key := s.rec.ApplyMessage(msg)
	if key != "" {
		s.decorateConversation(key)
	}

	if s.rt.Connected() {
		if err := s.rt.Emit(ctx, proto.EmitSendMessage, msg); err != nil {
			s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("post-send emit failed")
		}
	} else {
		s.log.Debug().Str("message_id", msg.ID).Msg("realtime channel down, skipping post-send emit")
	}

	s.sendState.Store(int32(SendSent))
	return msg, nil
}

// SendToConversation resolves the counterpart of an existing conversation
// and sends to them.
func (s *Service) SendToConversation(ctx context.Context, conversationKey, content string) (chat.Message, error) {
	conv, ok := s.convs.Get(conversationKey)
	if !ok {
		s.sendState.Store(int32(SendFailed))
		return chat.Message{}, chat.ErrNoRecipient
	}
	partner := chat.ResolvePartner(conv, s.self.ID)
	if partner.ID == "" {
		s.sendState.Store(int32(SendFailed))
		return chat.Message{}, chat.ErrNoRecipient
	}
	return s.Send(ctx, partner.ID, content)
}

// LoadConversations refreshes the conversation list from the REST API.
func (s *Service) LoadConversations(ctx context.Context) error {
	list, err := s.api.Conversations(ctx)
	if err != nil {
		return err
	}
	s.convs.ReplaceAll(list)
	return nil
}

// LoadMessages refreshes one conversation's history. A response that lost
// the race against a newer fetch for the same conversation is discarded.
func (s *Service) LoadMessages(ctx context.Context, conversationKey string) error {
	ticket := s.msgs.BeginFetch(conversationKey)

	list, err := s.api.ConversationMessages(ctx, conversationKey)
	if err != nil {
		return err
	}

	if !s.msgs.Replace(conversationKey, list, ticket) {
		s.log.Debug().Str("conversation", conversationKey).Msg("stale history fetch discarded")
	}
	return nil
}

// MarkRead marks one message as read on the backend and mirrors the flag
// locally wherever the message lives.
func (s *Service) MarkRead(ctx context.Context, messageID string) error {
	if s.tokens.Token() == "" {
		return chat.ErrNotAuthenticated
	}
	if _, err := s.api.MarkRead(ctx, messageID); err != nil {
		return err
	}
	s.msgs.MarkRead(messageID)
	return nil
}

// Delete removes one message on the backend and locally.
func (s *Service) Delete(ctx context.Context, messageID string) error {
	if s.tokens.Token() == "" {
		return chat.ErrNotAuthenticated
	}
	if err := s.api.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.msgs.Remove(messageID)
	return nil
}

// Conversations returns the current list snapshot with unread counts
// filled in for the local user.
func (s *Service) Conversations() []chat.Conversation {
	list := s.convs.Snapshot()
	for i := range list {
		list[i].UnreadCount = s.msgs.UnreadCount(list[i].CanonicalID, s.self.ID)
	}
	return list
}

// Messages returns the current history snapshot for one conversation.
func (s *Service) Messages(conversationKey string) []chat.Message {
	return s.msgs.Messages(conversationKey)
}

// decorateConversation attaches the partner's display name and avatar to
// the conversation summary so list previews have something to show.
func (s *Service) decorateConversation(key string) {
	conv, ok := s.convs.Get(key)
	if !ok {
		return
	}
	partner := chat.ResolvePartner(conv, s.self.ID)
	if partner.Name == "" && partner.Avatar == "" {
		return
	}
	s.convs.Upsert(key, chat.Conversation{Name: partner.Name, Avatar: partner.Avatar})
}
