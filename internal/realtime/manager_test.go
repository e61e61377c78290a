package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/log"
	"github.com/phucnh/studiochat-client/internal/proto"
)

// testServer accepts one websocket client, pushes pushed-in envelopes to it
// and records everything the client emits.
type testServer struct {
	srv      *httptest.Server
	tokens   chan string
	clients  chan string
	outbound chan proto.Envelope
	inbound  chan proto.Envelope
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		tokens:   make(chan string, 4),
		clients:  make(chan string, 4),
		outbound: make(chan proto.Envelope, 4),
		inbound:  make(chan proto.Envelope, 4),
	}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.tokens <- r.URL.Query().Get("token")
		ts.clients <- r.URL.Query().Get("client")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		ctx := r.Context()

		go func() {
			for env := range ts.outbound {
				if err := wsjson.Write(ctx, conn, env); err != nil {
					return
				}
			}
		}()

		for {
			var env proto.Envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				return
			}
			ts.inbound <- env
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func TestManagerConnectDispatchEmit(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewManager(ts.srv.URL, log.Nop(), Options{})

	received := make(chan json.RawMessage, 1)
	m.On(proto.EventNewMessage, func(event string, data json.RawMessage) {
		received <- data
	})

	if err := m.Connect(ctx, "tok-1"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer m.Disconnect()

	if !m.Connected() || m.Current() == nil {
		t.Fatal("manager should report connected")
	}
	if tok := <-ts.tokens; tok != "tok-1" {
		t.Fatalf("token not on handshake: %q", tok)
	}
	if client := <-ts.clients; client != m.ClientID() {
		t.Fatalf("client ID not on handshake: %q", client)
	}

	// Server push reaches the registered handler.
	payload, _ := json.Marshal(map[string]string{"_id": "m1", "content": "hi"})
	ts.outbound <- proto.Envelope{Event: proto.EventNewMessage, Data: payload}

	select {
	case data := <-received:
		var msg map[string]string
		if json.Unmarshal(data, &msg) != nil || msg["_id"] != "m1" {
			t.Fatalf("unexpected payload %s", data)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event not dispatched")
	}

	// Client emit reaches the server.
	if err := m.Emit(ctx, proto.EmitSendMessage, map[string]string{"_id": "m2"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	select {
	case env := <-ts.inbound:
		if env.Event != proto.EmitSendMessage {
			t.Fatalf("unexpected emit %+v", env)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("emit not received")
	}
}

func TestManagerEmitWhileDisconnected(t *testing.T) {
	m := NewManager("ws://localhost:0", log.Nop(), Options{})

	err := m.Emit(context.Background(), proto.EmitSendMessage, map[string]string{})
	if err != chat.ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if m.Connected() {
		t.Fatal("should not report connected")
	}
}

func TestManagerDisconnectIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewManager(ts.srv.URL, log.Nop(), Options{})
	if err := m.Connect(ctx, "tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := m.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if m.Connected() {
		t.Fatal("still connected after disconnect")
	}
	if err := m.Disconnect(); err != nil {
		t.Fatalf("second disconnect must be a no-op: %v", err)
	}
}

func TestManagerConnectTwiceIsNoOp(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := NewManager(ts.srv.URL, log.Nop(), Options{})
	if err := m.Connect(ctx, "tok"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer m.Disconnect()

	if err := m.Connect(ctx, "tok"); err != nil {
		t.Fatalf("second connect: %v", err)
	}
}
