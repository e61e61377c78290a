package chat

import "errors"

// Error codes for messaging failures surfaced to the UI layer.
const (
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeSendFailed       = "send_failed"
	ErrCodeFetchFailed      = "fetch_failed"
	ErrCodeNotConnected     = "not_connected"
	ErrCodeBadPayload       = "bad_payload"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotConnected     = errors.New("realtime channel not connected")
	ErrNoRecipient      = errors.New("no recipient resolvable")
)

// Error wraps a code and a human-readable message. The message is either
// the backend's own error text or a fixed per-operation fallback.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a typed messaging error.
func NewError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}
