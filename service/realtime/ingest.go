package realtime

import (
	"context"
	"strings"

	"HelpLink/logger"
	"HelpLink/store"
	"HelpLink/tools/errs"

	"go.uber.org/zap"
)

const DefaultMaxBodyLen = 1000

// Pipeline validates an outbound chat message, persists it, then hands it
// to the broadcast engine. Persistence and broadcast are sequential, not
// transactional: a durably stored message delivered to zero subscribers is
// a success, retrievable later through history.
type Pipeline struct {
	Messages   store.MessageStore
	Users      store.UserStore
	Reg        *Registry
	MaxBodyLen int
}

func NewPipeline(messages store.MessageStore, users store.UserStore, reg *Registry, maxBodyLen int) *Pipeline {
	if maxBodyLen <= 0 {
		maxBodyLen = DefaultMaxBodyLen
	}
	return &Pipeline{Messages: messages, Users: users, Reg: reg, MaxBodyLen: maxBodyLen}
}

// NewMessagePayload is the data carried by a new_message envelope.
type NewMessagePayload struct {
	ID            string `json:"id"`
	HelpRequestID string `json:"helpRequestId"`
	SenderID      string `json:"senderId"`
	SenderName    string `json:"senderName"`
	Body          string `json:"body"`
	CreatedAt     int64  `json:"createdAt"`
}

// HandleSend runs the full ingestion path. The returned message carries the
// store-assigned id and timestamp. A persistence failure surfaces as
// ErrPersistence and nothing is broadcast; the client must retry.
func (p *Pipeline) HandleSend(ctx context.Context, senderID, helpRequestID, body string) (*store.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.ErrValidation.WithDetail("empty message body").Wrap()
	}
	if len([]rune(body)) > p.MaxBodyLen {
		return nil, errs.ErrValidation.WrapMsg("body too long", "max", p.MaxBodyLen)
	}

	msg, err := p.Messages.Insert(ctx, senderID, helpRequestID, body)
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("insert message", "err", err)
	}

	// Sender display metadata is best effort; a lookup failure degrades the
	// label, never the send.
	senderName := "Unknown"
	if profile, perr := p.Users.GetProfile(ctx, senderID); perr == nil && profile.DisplayName != "" {
		senderName = profile.DisplayName
	}

	env := New(EventNewMessage, NewMessagePayload{
		ID:            msg.ID,
		HelpRequestID: msg.HelpRequestID,
		SenderID:      msg.SenderID,
		SenderName:    senderName,
		Body:          msg.Body,
		CreatedAt:     msg.CreatedAt.UnixMilli(),
	})
	delivered := p.Reg.BroadcastRoom(HelpRequestRoom(helpRequestID), env)
	logger.Debug("message broadcast",
		zap.String("helpRequestId", helpRequestID),
		zap.String("messageId", msg.ID),
		zap.Int("delivered", delivered))
	return msg, nil
}
