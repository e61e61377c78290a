// Package app wires the messaging core together: session store, REST
// client, in-memory stores, realtime manager, reconciler and messenger
// service.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/phucnh/studiochat-client/internal/api"
	"github.com/phucnh/studiochat-client/internal/chat"
	"github.com/phucnh/studiochat-client/internal/config"
	"github.com/phucnh/studiochat-client/internal/messenger"
	"github.com/phucnh/studiochat-client/internal/realtime"
	"github.com/phucnh/studiochat-client/internal/reconcile"
	"github.com/phucnh/studiochat-client/internal/session"
	"github.com/phucnh/studiochat-client/internal/state"
)

// App owns the assembled messaging client.
type App struct {
	cfg      config.Config
	log      *zerolog.Logger
	sessions *session.Store
	apiC     *api.Client
	convs    *state.ConversationList
	msgs     *state.MessageLog
	rt       *realtime.Manager
	rec      *reconcile.Reconciler
	svc      *messenger.Service

	token string
	self  chat.UserRef
}

// New constructs the application. A persisted session, when present and
// not expired, is restored; otherwise the app starts unauthenticated.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	sessions, err := session.Open(cfg.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	a := &App{
		cfg:      cfg,
		log:      logger,
		sessions: sessions,
		apiC:     api.NewClient(cfg.APIBaseURL, logger, api.WithTimeout(cfg.RequestTimeout)),
		convs:    state.NewConversationList(),
		msgs:     state.NewMessageLog(),
		rt: realtime.NewManager(cfg.SocketURL, logger, realtime.Options{
			ReconnectBase: cfg.ReconnectBase,
			ReconnectMax:  cfg.ReconnectMax,
		}),
	}

	if token, user, err := sessions.Load(context.Background()); err == nil {
		if session.TokenExpired(token) {
			logger.Info().Msg("persisted token expired, starting unauthenticated")
		} else {
			a.token = token
			a.self = user
			a.apiC.SetToken(token)
		}
	}

	a.rec = reconcile.New(a.convs, a.msgs, a.rt, func(ctx context.Context) error {
		list, err := a.apiC.Conversations(ctx)
		if err != nil {
			return err
		}
		a.convs.ReplaceAll(list)
		return nil
	}, logger)

	a.svc = messenger.New(a.apiC, a.convs, a.msgs, a.rt, a.rec, a, a.self, logger)
	return a, nil
}

// Token implements messenger.TokenSource.
func (a *App) Token() string {
	return a.token
}

// Self returns the authenticated user, zero when unauthenticated.
func (a *App) Self() chat.UserRef {
	return a.self
}

// Service exposes the messaging operations.
func (a *App) Service() *messenger.Service {
	return a.svc
}

// Realtime exposes the channel manager.
func (a *App) Realtime() *realtime.Manager {
	return a.rt
}

// Login authenticates against the backend and persists the session.
func (a *App) Login(ctx context.Context, email, password string) error {
	sess, err := a.apiC.Login(ctx, email, password)
	if err != nil {
		return err
	}

	a.token = sess.Token
	a.self = sess.User
	a.apiC.SetToken(sess.Token)

	if err := a.sessions.Save(ctx, sess.Token, sess.User); err != nil {
		return err
	}

	// Rebuild the service so partner resolution sees the fresh identity.
	a.svc = messenger.New(a.apiC, a.convs, a.msgs, a.rt, a.rec, a, a.self, a.log)

	a.log.Info().Str("user", sess.User.ID).Msg("logged in")
	return nil
}

// Logout clears the persisted session.
func (a *App) Logout(ctx context.Context) error {
	a.token = ""
	a.self = chat.UserRef{}
	a.apiC.SetToken("")
	return a.sessions.Clear(ctx)
}

// Connect brings up the realtime channel and binds the reconciler to it.
func (a *App) Connect(ctx context.Context) error {
	if a.token == "" {
		return chat.ErrNotAuthenticated
	}
	if err := a.rt.Connect(ctx, a.token); err != nil {
		return err
	}
	a.rec.Bind(ctx)
	return nil
}

// Close releases resources.
func (a *App) Close() error {
	if err := a.rt.Disconnect(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close realtime channel")
	}
	return a.sessions.Close()
}
