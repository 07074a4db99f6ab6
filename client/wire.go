package client

import (
	"context"

	"github.com/gorilla/websocket"
)

// Wire is the minimal transport surface the state machine drives; the
// gorilla dialer implements it in production and tests substitute a double.
type Wire interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// DialFunc opens a transport to the gateway.
type DialFunc func(ctx context.Context, url string) (Wire, error)

func gorillaDial(ctx context.Context, url string) (Wire, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &gorillaWire{ws: ws}, nil
}

type gorillaWire struct {
	ws *websocket.Conn
}

func (w *gorillaWire) ReadMessage() ([]byte, error) {
	_, data, err := w.ws.ReadMessage()
	return data, err
}

func (w *gorillaWire) WriteJSON(v any) error { return w.ws.WriteJSON(v) }

func (w *gorillaWire) Close() error { return w.ws.Close() }
