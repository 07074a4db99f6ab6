package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"HelpLink/logger"
	"HelpLink/tools/errs"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Transport is the capability the registry holds per connection. Both
// WebSocket and SSE (and the test double) implement it uniformly.
type Transport interface {
	// Send writes one envelope. It must never block on a slow peer; a full
	// outbound queue is an error, not a stall.
	Send(env Envelope) error
	// Alive reports whether the handle can still accept writes.
	Alive() bool
	// Close tears the transport down; idempotent.
	Close() error
}

// ===== WebSocket =====

// WSTransport wraps a gorilla connection with a buffered outbound queue
// consumed by a single writer goroutine.
type WSTransport struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

func NewWSTransport(ws *websocket.Conn, queueSize int) *WSTransport {
	if queueSize <= 0 {
		queueSize = 256
	}
	t := &WSTransport{
		ws:   ws,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

func (t *WSTransport) Send(env Envelope) error {
	if t.closed.Load() {
		return errs.New("transport closed")
	}
	b, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(err)
	}
	select {
	case t.send <- b:
		return nil
	default:
		// Slow client: skip rather than serialize the broadcast on it.
		return errs.New("send queue full")
	}
}

func (t *WSTransport) Alive() bool { return !t.closed.Load() }

func (t *WSTransport) Close() error {
	t.once.Do(func() {
		t.closed.Store(true)
		close(t.done)
	})
	return nil
}

func (t *WSTransport) writeLoop() {
	defer func() {
		_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = t.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = t.ws.Close()
	}()
	for {
		select {
		case <-t.done:
			return
		case b := <-t.send:
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Debug("ws write failed, closing transport")
				_ = t.Close()
				return
			}
		}
	}
}

// ===== Server-Sent Events =====

// SSETransport writes envelopes as SSE data: frames. The producing HTTP
// handler blocks on Done() until the transport is closed from either side.
type SSETransport struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	fl     http.Flusher
	ctx    context.Context
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewSSETransport prepares the stream. It returns an error when the
// ResponseWriter cannot flush, which no SSE client can use.
func NewSSETransport(w http.ResponseWriter, ctx context.Context) (*SSETransport, error) {
	fl, ok := w.(http.Flusher)
	if !ok {
		return nil, errs.New("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	return &SSETransport{w: w, fl: fl, ctx: ctx, done: make(chan struct{})}, nil
}

func (t *SSETransport) Send(env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// Recheck under the lock: a Close that won the race means the HTTP
	// handler may already have returned, and the writer must not be touched.
	if !t.Alive() {
		return errs.New("transport closed")
	}
	if _, err := fmt.Fprintf(t.w, "data: %s\n\n", b); err != nil {
		t.closeLocked()
		return errs.Wrap(err)
	}
	t.fl.Flush()
	return nil
}

func (t *SSETransport) Alive() bool {
	if t.closed.Load() {
		return false
	}
	select {
	case <-t.ctx.Done():
		return false
	default:
		return true
	}
}

// Close tears the stream down. It takes the write mutex so any in-flight
// Send finishes before Done() unblocks the HTTP handler; net/http forbids
// writes after the handler returns.
func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}

func (t *SSETransport) closeLocked() {
	t.once.Do(func() {
		t.closed.Store(true)
		close(t.done)
	})
}

// Done unblocks when the transport is closed.
func (t *SSETransport) Done() <-chan struct{} { return t.done }
