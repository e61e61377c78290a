// Package realtime owns the websocket channel to the messaging backend.
// The connection is an explicitly managed object with Connect/Disconnect/
// Current, injected into the layers that need it; nothing in this module
// reaches for a shared global socket.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/proto"
)

// Handler consumes one inbound event. Handlers run on the read loop
// goroutine, so per-connection event order is preserved.
type Handler func(event string, data json.RawMessage)

// Options tune connection behavior.
type Options struct {
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	MaxReconnectAttempts int
}

func (o *Options) defaults() {
	if o.ReconnectBase == 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectMax == 0 {
		o.ReconnectMax = 30 * time.Second
	}
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = 10
	}
}

// Manager dials and supervises the realtime channel.
type Manager struct {
	url      string
	clientID string
	opts     Options
	log      *zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	token   string
	cancel  context.CancelFunc
	closing bool

	hmu      sync.RWMutex
	handlers map[string][]Handler
}

// NewManager constructs a manager for the given websocket endpoint.
func NewManager(endpoint string, logger *zerolog.Logger, opts Options) *Manager {
	opts.defaults()
	return &Manager{
		url:      endpoint,
		clientID: uuid.NewString(),
		opts:     opts,
		log:      logger,
		handlers: make(map[string][]Handler),
	}
}

// ClientID is the stable identifier this session presents on the
// handshake, so the backend can avoid echoing a client its own emits.
func (m *Manager) ClientID() string {
	return m.clientID
}

// On registers a handler for an inbound event name.
func (m *Manager) On(event string, h Handler) {
	m.hmu.Lock()
	m.handlers[event] = append(m.handlers[event], h)
	m.hmu.Unlock()
}

// Connected reports whether a live connection is currently held.
func (m *Manager) Connected() bool {
	return m.Current() != nil
}

// Current returns the live connection, or nil when disconnected.
func (m *Manager) Current() *websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Connect dials the channel with the given bearer token and starts the
// read loop. Calling Connect while connected is a no-op.
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		return nil
	}
	m.token = token
	m.closing = false
	m.mu.Unlock()

	conn, err := m.dial(ctx, token)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.mu.Unlock()

	go m.readLoop(loopCtx)

	m.log.Info().Str("url", m.url).Msg("realtime channel connected")
	return nil
}

// Disconnect closes the channel. Safe to call when not connected.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.closing = true
	conn := m.conn
	m.conn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "client disconnect")
}

// Emit sends one outbound event. Fails with chat.ErrNotConnected while
// the channel is down; callers decide whether that is fatal.
func (m *Manager) Emit(ctx context.Context, event string, data any) error {
	conn := m.Current()
	if conn == nil {
		return chat.ErrNotConnected
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Envelope{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (m *Manager) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	endpoint := strings.Replace(m.url, "https://", "wss://", 1)
	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)

	q := url.Values{}
	q.Set("token", token)
	q.Set("client", m.clientID)
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	conn, _, err := websocket.Dial(ctx, endpoint+sep+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime channel: %w", err)
	}
	return conn, nil
}

func (m *Manager) readLoop(ctx context.Context) {
	for {
		conn := m.Current()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			m.mu.Lock()
			closing := m.closing
			m.conn = nil
			m.mu.Unlock()

			if closing || ctx.Err() != nil {
				return
			}

			m.log.Warn().Err(err).Msg("realtime channel dropped")
			if !m.reconnect(ctx) {
				return
			}
			continue
		}

		var env proto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Debug().Err(err).Msg("malformed realtime frame")
			continue
		}
		m.dispatch(env)
	}
}

func (m *Manager) dispatch(env proto.Envelope) {
	m.hmu.RLock()
	handlers := m.handlers[env.Event]
	m.hmu.RUnlock()

	if len(handlers) == 0 {
		m.log.Debug().Str("event", env.Event).Msg("unhandled realtime event")
		return
	}
	for _, h := range handlers {
		h(env.Event, env.Data)
	}
}

// reconnect retries the dial with jittered exponential backoff. Returns
// false when the retry budget is exhausted or the context ended.
func (m *Manager) reconnect(ctx context.Context) bool {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	for attempt := 0; attempt < m.opts.MaxReconnectAttempts; attempt++ {
		delay := m.backoff(attempt)
		m.log.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("realtime reconnecting")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, err := m.dial(ctx, token)
		if err != nil {
			m.log.Warn().Err(err).Msg("realtime reconnect failed")
			continue
		}

		m.mu.Lock()
		if m.closing {
			m.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "client disconnect")
			return false
		}
		m.conn = conn
		m.mu.Unlock()

		m.log.Info().Msg("realtime channel reconnected")
		return true
	}

	m.log.Error().Int("attempts", m.opts.MaxReconnectAttempts).Msg("realtime reconnect budget exhausted")
	return false
}

func (m *Manager) backoff(attempt int) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(m.opts.ReconnectBase) * 0.5)
	delay := float64(m.opts.ReconnectBase)*math.Pow(2, float64(attempt)) + float64(jitter)
	return time.Duration(math.Min(delay, float64(m.opts.ReconnectMax)))
}
