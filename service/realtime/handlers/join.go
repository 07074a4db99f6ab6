package handlers

import (
	"HelpLink/service/realtime"
	"HelpLink/tools/decode"
	"HelpLink/tools/errs"
)

// JoinPayload is the data of a join_help_request envelope.
type JoinPayload struct {
	HelpRequestID string `json:"helpRequestId"`
}

type JoinHandler struct{}

func NewJoinHandler() realtime.Handler { return &JoinHandler{} }

func (h *JoinHandler) Type() string { return realtime.EventJoinHelpRequest }

// Handle joins the per-help-request channel. The operation is privileged:
// an unauthenticated connection gets an error envelope and stays connected.
func (h *JoinHandler) Handle(ctx *realtime.Context, env *realtime.Envelope, connID string) error {
	info, ok := ctx.S.Registry().Get(connID)
	if !ok {
		return errs.ErrNotFound.WrapMsg("join", "connId", connID)
	}
	if info.UserID == "" {
		ctx.S.Registry().SendToConn(connID, realtime.New(realtime.EventError,
			map[string]any{"message": "Not authenticated"}))
		return nil
	}

	payload, err := decode.Payload[JoinPayload](env.Data)
	if err != nil || payload.HelpRequestID == "" {
		return errs.ErrMalformed.WithDetail("missing helpRequestId").Wrap()
	}
	return ctx.S.Registry().JoinRoom(connID, realtime.HelpRequestRoom(payload.HelpRequestID))
}
