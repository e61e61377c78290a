// Package session persists the authenticated session (bearer token and
// user profile) across client restarts. Conversation and message state is
// deliberately not persisted; the stores refill from the backend on start.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/phucnh/studiochat-client/internal/chat"
)

// ErrNoSession is returned when no persisted session exists.
var ErrNoSession = errors.New("no persisted session")

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	user_id TEXT NOT NULL,
	user_name TEXT NOT NULL DEFAULT '',
	user_avatar TEXT NOT NULL DEFAULT '',
	device_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the sqlite-backed session store.
type Store struct {
	db       *sql.DB
	deviceID string
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.loadDeviceID(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DeviceID is a stable per-installation identifier, generated on first use
// and reused for every session row afterwards.
func (s *Store) DeviceID() string {
	return s.deviceID
}

// Save stores the token and profile, replacing any previous session.
func (s *Store) Save(ctx context.Context, token string, user chat.UserRef) error {
	query := `
		INSERT INTO session (id, token, user_id, user_name, user_avatar, device_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			user_name = excluded.user_name,
			user_avatar = excluded.user_avatar,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, token, user.ID, user.Name, user.Avatar, s.deviceID); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns the persisted token and profile, or ErrNoSession.
func (s *Store) Load(ctx context.Context) (string, chat.UserRef, error) {
	query := `SELECT token, user_id, user_name, user_avatar FROM session WHERE id = 1`

	var token string
	var user chat.UserRef
	err := s.db.QueryRowContext(ctx, query).Scan(&token, &user.ID, &user.Name, &user.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return "", chat.UserRef{}, ErrNoSession
	}
	if err != nil {
		return "", chat.UserRef{}, fmt.Errorf("load session: %w", err)
	}
	return token, user, nil
}

// Clear removes the persisted session. The device ID survives.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// loadDeviceID reuses the stored device ID when a session row exists,
// otherwise mints a fresh one.
func (s *Store) loadDeviceID() error {
	err := s.db.QueryRow(`SELECT device_id FROM session WHERE id = 1`).Scan(&s.deviceID)
	if errors.Is(err, sql.ErrNoRows) || s.deviceID == "" {
		s.deviceID = uuid.NewString()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load device id: %w", err)
	}
	return nil
}
