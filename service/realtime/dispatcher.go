package realtime

import (
	"HelpLink/tools/errs"
)

// Context is handed to every inbound-envelope handler.
type Context struct {
	S *Server
}

// Handler processes one inbound envelope type.
type Handler interface {
	Type() string
	Handle(ctx *Context, env *Envelope, connID string) error
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Get(typ string) Handler { return d.handlers[typ] }

// Dispatch routes the envelope to its handler. An unknown type is reported
// to the caller, who answers with a generic error envelope and keeps the
// connection open.
func (d *Dispatcher) Dispatch(ctx *Context, env *Envelope, connID string) error {
	h, ok := d.handlers[env.Type]
	if !ok {
		return errs.ErrMalformed.WrapMsg("no handler", "type", env.Type)
	}
	return h.Handle(ctx, env, connID)
}
