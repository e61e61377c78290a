// Package api is the HTTP client for the studio-rental backend's
// messaging endpoints. It owns request plumbing and error surfacing;
// payload shape interpretation lives in the chat package adapter.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phucnh/studiochat-client/internal/chat"
)

// DefaultTimeout bounds every REST call.
const DefaultTimeout = 30 * time.Second

// Client talks to the backend REST API with bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, logger *zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Session is the result of a successful login.
type Session struct {
	Token string       `json:"token"`
	User  chat.UserRef `json:"-"`
}

// Login exchanges credentials for a token and profile.
// POST /auth/login
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	data, err := c.do(ctx, http.MethodPost, "/auth/login", body, "login failed")
	if err != nil {
		return Session{}, err
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID     string `json:"_id"`
			Name   string `json:"name"`
			Avatar string `json:"avatar"`
		} `json:"user"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return Session{}, fmt.Errorf("decode login response: %w", err)
	}
	return Session{
		Token: resp.Token,
		User:  chat.UserRef{ID: resp.User.ID, Name: resp.User.Name, Avatar: resp.User.Avatar},
	}, nil
}

// SendMessage creates a message addressed to toUserID.
// POST /messages
func (c *Client) SendMessage(ctx context.Context, toUserID, content string) (chat.Message, error) {
	body := map[string]string{"toUserId": toUserID, "content": content}
	data, err := c.do(ctx, http.MethodPost, "/messages", body, "failed to send message")
	if err != nil {
		return chat.Message{}, err
	}
	return chat.DecodeMessage(data)
}

// Conversations fetches all conversation summaries for the current user.
// GET /messages/conversations
func (c *Client) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	data, err := c.do(ctx, http.MethodGet, "/messages/conversations", nil, "failed to load conversations")
	if err != nil {
		return nil, err
	}
	return chat.DecodeConversationList(data)
}

// ConversationMessages fetches the message history of one conversation.
// GET /messages/conversation/:conversationId
func (c *Client) ConversationMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	path := "/messages/conversation/" + url.PathEscape(conversationID)
	data, err := c.do(ctx, http.MethodGet, path, nil, "failed to load messages")
	if err != nil {
		return nil, err
	}
	return chat.DecodeMessageList(data)
}

// MarkRead marks one message as read and returns the updated copy.
// PUT /messages/:id/read
func (c *Client) MarkRead(ctx context.Context, messageID string) (chat.Message, error) {
	path := "/messages/" + url.PathEscape(messageID) + "/read"
	data, err := c.do(ctx, http.MethodPut, path, nil, "failed to mark message as read")
	if err != nil {
		return chat.Message{}, err
	}
	return chat.DecodeMessage(data)
}

// DeleteMessage deletes one message.
// DELETE /messages/:id
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	path := "/messages/" + url.PathEscape(messageID)
	_, err := c.do(ctx, http.MethodDelete, path, nil, "failed to delete message")
	return err
}

// do runs one request and returns the response body. Backend error
// payloads are surfaced verbatim; fallback is substituted when the body
// carries no usable text.
func (c *Client) do(ctx context.Context, method, path string, body any, fallback string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, chat.NewError(chat.ErrCodeFetchFailed, fallback)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := backendErrorText(data)
		if msg == "" {
			msg = fallback
		}
		code := chat.ErrCodeFetchFailed
		if resp.StatusCode == http.StatusUnauthorized {
			code = chat.ErrCodeNotAuthenticated
		}
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Str("error", msg).Msg("backend rejected request")
		return nil, chat.NewError(code, msg)
	}

	return data, nil
}

// backendErrorText pulls the human-readable error out of a failure body.
func backendErrorText(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
