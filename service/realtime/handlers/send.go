package handlers

import (
	"context"
	"time"

	"HelpLink/service/realtime"
	"HelpLink/tools/decode"
	"HelpLink/tools/errs"
)

const sendTimeout = 5 * time.Second

// SendPayload is the data of a send_message envelope.
type SendPayload struct {
	HelpRequestID string `json:"helpRequestId"`
	Message       string `json:"message"`
}

type SendHandler struct{}

func NewSendHandler() realtime.Handler { return &SendHandler{} }

func (h *SendHandler) Type() string { return realtime.EventSendMessage }

// Handle runs the ingestion pipeline for a message sent over the stream.
// Subscribers of the help-request room, the sender included when joined,
// receive the resulting new_message broadcast.
func (h *SendHandler) Handle(ctx *realtime.Context, env *realtime.Envelope, connID string) error {
	info, ok := ctx.S.Registry().Get(connID)
	if !ok {
		return errs.ErrNotFound.WrapMsg("send", "connId", connID)
	}
	if info.UserID == "" {
		ctx.S.Registry().SendToConn(connID, realtime.New(realtime.EventError,
			map[string]any{"message": "Not authenticated"}))
		return nil
	}

	payload, err := decode.Payload[SendPayload](env.Data)
	if err != nil || payload.HelpRequestID == "" {
		return errs.ErrMalformed.WithDetail("missing helpRequestId").Wrap()
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	_, err = ctx.S.Pipe().HandleSend(sendCtx, info.UserID, payload.HelpRequestID, payload.Message)
	return err
}
