package realtime

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"HelpLink/tools/errs"

	"github.com/google/uuid"
)

// Envelope is the uniform wire unit carried over every transport: a
// discriminated type tag plus an opaquely-typed data payload and optional
// correlation id.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Server -> client envelope types.
const (
	EventConnected       = "connected"
	EventHeartbeat       = "heartbeat"
	EventRoomJoined      = "room_joined"
	EventRoomLeft        = "room_left"
	EventNewMessage      = "new_message"
	EventError           = "error"
	EventAuthError       = "auth_error"
	EventAuthenticated   = "authenticated"
	EventPong            = "pong"
	EventConnectionRetry = "connection_retry"
)

// Client -> server envelope types.
const (
	EventAuthenticate    = "authenticate"
	EventPing            = "ping"
	EventJoinHelpRequest = "join_help_request"
	EventSendMessage     = "send_message"
	EventRetryConnection = "retry_connection"
)

// New builds an envelope with a fresh correlation id and server timestamp.
func New(typ string, data any) Envelope {
	return Envelope{
		Type:      typ,
		Data:      data,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
	}
}

// ParseEnvelope decodes a raw transport frame.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, errs.ErrMalformed.WrapMsg("unmarshal envelope", "err", err)
	}
	if env.Type == "" {
		return nil, errs.ErrMalformed.WithDetail("missing type").Wrap()
	}
	return env, nil
}

// ErrorEnvelope renders err as a generic error envelope. CodeErrors keep
// their code and message; anything else degrades to the malformed code.
func ErrorEnvelope(err error) Envelope {
	code := errs.CodeOf(err)
	msg := "internal error"
	var codeErr *errs.CodeError
	if stderrors.As(err, &codeErr) {
		msg = codeErr.Msg
	}
	if code == 0 {
		code = errs.CodeMalformed
		msg = "Malformed envelope"
	}
	return New(EventError, map[string]any{"code": code, "message": msg})
}

// AuthErrorEnvelope renders an authentication failure; the connection stays
// open, the caller simply remains unauthenticated.
func AuthErrorEnvelope(detail string) Envelope {
	return New(EventAuthError, map[string]any{"message": detail})
}
