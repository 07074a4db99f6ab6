package client

import (
	"context"
	"sync"
	"time"

	"HelpLink/logger"
	"HelpLink/service/realtime"
	"HelpLink/tools/errs"
)

// State is the reconnection controller's explicit machine state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// HandlerFunc consumes one received envelope.
type HandlerFunc func(env realtime.Envelope)

// Options configures the client.
type Options struct {
	URL        string        // ws:// or wss:// endpoint
	Token      string        // bearer credential sent via authenticate envelope
	MaxRetries int           // automatic attempts before giving up (default 5)
	BaseDelay  time.Duration // first backoff step (default 1s)
	MaxDelay   time.Duration // backoff cap (default 16s)
	Dial       DialFunc      // nil => gorilla websocket dialer
}

func (o *Options) norm() {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 16 * time.Second
	}
	if o.Dial == nil {
		o.Dial = gorillaDial
	}
}

// Client owns a single logical connection: it detects transport failure and
// reconnects with exponential backoff while replaying room-join intent.
// The state machine is driven by discrete events (open, transport error,
// timer fired, user-requested reconnect, shutdown); the retry timer is the
// only suspension point and is always cancelable.
type Client struct {
	mu       sync.Mutex
	opts     Options
	state    State
	wire     Wire
	retries  int
	timer    *time.Timer
	handlers map[string][]HandlerFunc
	rooms    map[string]struct{} // join intent, replayed after each connect
	lastErr  error
	epoch    int // connection generation; stale read loops are ignored

	connStart time.Time
	latency   time.Duration
}

func New(opts Options) *Client {
	opts.norm()
	return &Client{
		opts:     opts,
		state:    StateDisconnected,
		handlers: make(map[string][]HandlerFunc),
		rooms:    make(map[string]struct{}),
	}
}

// On registers a handler for an envelope type. Envelopes with no registered
// handler are logged and dropped, never fatal.
func (c *Client) On(envType string, h HandlerFunc) {
	c.mu.Lock()
	c.handlers[envType] = append(c.handlers[envType], h)
	c.mu.Unlock()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError reports the most recent terminal condition, notably
// ErrMaxRetriesExceeded once automatic attempts are exhausted.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ConnectLatency reports how long the last successful dial took.
func (c *Client) ConnectLatency() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency
}

// Connect drives Disconnected/Reconnecting -> Connecting -> Connected.
// A failed dial is a transport error: it schedules the next backoff step.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateShutDown:
		c.mu.Unlock()
		return errs.New("client is shut down")
	case StateConnecting, StateConnected:
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.connStart = time.Now()
	dial := c.opts.Dial
	url := c.opts.URL
	c.mu.Unlock()

	w, err := dial(ctx, url)
	if err != nil {
		c.transportError(err)
		return err
	}

	c.mu.Lock()
	if c.state == StateShutDown {
		c.mu.Unlock()
		_ = w.Close()
		return errs.New("client is shut down")
	}
	c.wire = w
	c.state = StateConnected
	c.retries = 0
	c.lastErr = nil
	c.latency = time.Since(c.connStart)
	c.epoch++
	epoch := c.epoch
	token := c.opts.Token
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()

	// Restore session intent before anything else flows.
	if token != "" {
		_ = w.WriteJSON(realtime.New(realtime.EventAuthenticate, map[string]any{"token": token}))
	}
	for _, room := range rooms {
		_ = w.WriteJSON(realtime.New(realtime.EventJoinHelpRequest, map[string]any{"helpRequestId": room}))
	}

	go c.readLoop(w, epoch)
	return nil
}

// JoinHelpRequest records join intent and, when connected, requests
// membership immediately. Intent survives reconnects.
func (c *Client) JoinHelpRequest(helpRequestID string) error {
	c.mu.Lock()
	c.rooms[helpRequestID] = struct{}{}
	w := c.wire
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return w.WriteJSON(realtime.New(realtime.EventJoinHelpRequest, map[string]any{"helpRequestId": helpRequestID}))
}

// SendMessage sends a chat message over the live stream.
func (c *Client) SendMessage(helpRequestID, body string) error {
	c.mu.Lock()
	w := c.wire
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		return errs.New("not connected")
	}
	return w.WriteJSON(realtime.New(realtime.EventSendMessage, map[string]any{
		"helpRequestId": helpRequestID,
		"message":       body,
	}))
}

// Reconnect is the manual override: it cancels any pending retry, resets
// the counter, and dials again from any non-terminal state.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateShutDown {
		c.mu.Unlock()
		return errs.New("client is shut down")
	}
	c.cancelTimerLocked()
	c.retries = 0
	c.lastErr = nil
	c.closeWireLocked()
	c.state = StateDisconnected
	c.mu.Unlock()

	return c.Connect(ctx)
}

// Shutdown is terminal: it cancels the pending retry timer, closes the
// transport, and clears all registered handlers.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.state = StateShutDown
	c.cancelTimerLocked()
	c.closeWireLocked()
	c.handlers = make(map[string][]HandlerFunc)
	c.mu.Unlock()
}

// ===== internal events =====

func (c *Client) readLoop(w Wire, epoch int) {
	for {
		raw, err := w.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.epoch != epoch || c.state == StateShutDown
			c.mu.Unlock()
			if !stale {
				c.transportError(err)
			}
			return
		}
		env, perr := realtime.ParseEnvelope(raw)
		if perr != nil {
			logger.Infof("[client] dropping malformed envelope: %v", perr)
			continue
		}
		c.dispatch(*env)
	}
}

func (c *Client) dispatch(env realtime.Envelope) {
	c.mu.Lock()
	hs := append([]HandlerFunc(nil), c.handlers[env.Type]...)
	c.mu.Unlock()

	if len(hs) == 0 {
		logger.Debug("[client] no handler for envelope type " + env.Type)
		return
	}
	for _, h := range hs {
		h(env)
	}
}

// transportError handles dial failure and mid-stream errors alike: schedule
// a capped-exponential retry until the budget runs out, then surface
// ErrMaxRetriesExceeded and wait for a manual Reconnect.
func (c *Client) transportError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateShutDown {
		return
	}
	c.closeWireLocked()

	if c.retries < c.opts.MaxRetries {
		delay := backoffDelay(c.retries, c.opts.BaseDelay, c.opts.MaxDelay)
		c.retries++
		c.state = StateReconnecting
		logger.Infof("[client] transport error (%v), retry %d in %s", err, c.retries, delay)
		c.timer = time.AfterFunc(delay, c.onRetryTimer)
		return
	}
	c.state = StateReconnecting
	c.lastErr = errs.ErrMaxRetriesExceeded.WrapMsg("giving up", "attempts", c.opts.MaxRetries)
	logger.Errorf("[client] %v", c.lastErr)
}

func (c *Client) onRetryTimer() {
	c.mu.Lock()
	if c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.mu.Unlock()

	_ = c.Connect(context.Background())
}

func (c *Client) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) closeWireLocked() {
	if c.wire != nil {
		_ = c.wire.Close()
		c.wire = nil
	}
	c.epoch++
}

// backoffDelay computes min(base * 2^retry, max).
func backoffDelay(retry int, base, max time.Duration) time.Duration {
	d := base << uint(retry)
	if d > max || d <= 0 {
		return max
	}
	return d
}
