package handlers

import (
	"time"

	"HelpLink/service/realtime"
)

type RetryHandler struct{}

func NewRetryHandler() realtime.Handler { return &RetryHandler{} }

func (h *RetryHandler) Type() string { return realtime.EventRetryConnection }

// Handle acknowledges a client-initiated retry_connection probe. The client
// uses the ack to confirm the stream is usable before resetting its own
// retry counter.
func (h *RetryHandler) Handle(ctx *realtime.Context, env *realtime.Envelope, connID string) error {
	ctx.S.Registry().SendToConn(connID, realtime.New(realtime.EventConnectionRetry, map[string]any{
		"connectionId": connID,
		"serverTime":   time.Now().UnixMilli(),
	}))
	return nil
}
