package handlers

import (
	"HelpLink/logger"
	"HelpLink/service/realtime"
	"HelpLink/tools/decode"
)

// AuthPayload is the data of an authenticate envelope.
type AuthPayload struct {
	Token string `json:"token"`
}

type AuthHandler struct{}

func NewAuthHandler() realtime.Handler { return &AuthHandler{} }

func (h *AuthHandler) Type() string { return realtime.EventAuthenticate }

// Handle verifies the bearer credential carried in the envelope. Failure
// answers auth_error and leaves the connection open and unauthenticated;
// success joins the personal room and answers authenticated.
func (h *AuthHandler) Handle(ctx *realtime.Context, env *realtime.Envelope, connID string) error {
	payload, err := decode.Payload[AuthPayload](env.Data)
	if err != nil || payload.Token == "" {
		ctx.S.Registry().SendToConn(connID, realtime.AuthErrorEnvelope("missing token"))
		return nil
	}

	userID, err := ctx.S.VerifyToken(payload.Token)
	if err != nil {
		logger.Infof("[auth] verify failed connId=%s: %v", connID, err)
		ctx.S.Registry().SendToConn(connID, realtime.AuthErrorEnvelope("invalid token"))
		return nil
	}

	if err := ctx.S.Registry().Authenticate(connID, userID); err != nil {
		return err
	}
	ctx.S.MarkOnline(userID)
	ctx.S.Registry().SendToConn(connID, realtime.New(realtime.EventAuthenticated,
		map[string]any{"userId": userID}))
	return nil
}
