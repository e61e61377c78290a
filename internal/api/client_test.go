package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/log"
)

func TestSendMessageCarriesAuthAndBody(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"_id":        "m1",
			"fromUserId": "me",
			"toUserId":   gotBody["toUserId"],
			"content":    gotBody["content"],
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, log.Nop())
	c.SetToken("tok-123")

	msg, err := c.SendMessage(context.Background(), "them", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("missing bearer token, got %q", gotAuth)
	}
	if gotBody["toUserId"] != "them" || gotBody["content"] != "hello" {
		t.Fatalf("unexpected body %+v", gotBody)
	}
	if msg.ID != "m1" || msg.Content != "hello" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestBackendErrorSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "recipient is blocked"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, log.Nop())
	_, err := c.SendMessage(context.Background(), "them", "hello")
	if err == nil {
		t.Fatal("expected error")
	}

	var typed *chat.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if typed.Message != "recipient is blocked" {
		t.Fatalf("backend text not surfaced: %q", typed.Message)
	}
}

func TestFallbackMessageWhenBodyUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, log.Nop())
	_, err := c.SendMessage(context.Background(), "them", "hello")

	var typed *chat.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if typed.Message != "failed to send message" {
		t.Fatalf("fallback not substituted: %q", typed.Message)
	}
}

func TestUnauthorizedMapsToAuthCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, log.Nop())
	_, err := c.Conversations(context.Background())

	var typed *chat.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if typed.Code != chat.ErrCodeNotAuthenticated || typed.Message != "token expired" {
		t.Fatalf("unexpected error %+v", typed)
	}
}

func TestConversationMessagesAcceptsBothShapes(t *testing.T) {
	payloads := []string{
		`{"messages": [{"_id": "m1"}]}`,
		`[{"_id": "m1"}]`,
	}
	for _, payload := range payloads {
		body := payload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/messages/conversation/conv-1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(body))
		}))

		c := NewClient(srv.URL, log.Nop())
		msgs, err := c.ConversationMessages(context.Background(), "conv-1")
		srv.Close()
		if err != nil {
			t.Fatalf("payload %q: %v", payload, err)
		}
		if len(msgs) != 1 || msgs[0].ID != "m1" {
			t.Fatalf("payload %q: unexpected result %+v", payload, msgs)
		}
	}
}

func TestDeleteMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/messages/m1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"deleted": "m1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, log.Nop())
	if err := c.DeleteMessage(context.Background(), "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
