package handlers

import (
	"HelpLink/service/realtime"
)

type PingHandler struct{}

func NewPingHandler() realtime.Handler { return &PingHandler{} }

func (h *PingHandler) Type() string { return realtime.EventPing }

// Handle answers pong, echoing the caller's correlation id so the client can
// match request to response.
func (h *PingHandler) Handle(ctx *realtime.Context, env *realtime.Envelope, connID string) error {
	pong := realtime.New(realtime.EventPong, nil)
	if env.MessageID != "" {
		pong.MessageID = env.MessageID
	}
	ctx.S.Registry().SendToConn(connID, pong)
	return nil
}
