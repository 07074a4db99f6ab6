package realtime

import (
	"sync"
	"time"

	"HelpLink/tools/errs"
	"HelpLink/tools/ids"
)

// ===== Configuration =====

type Config struct {
	HeartbeatEvery time.Duration    // heartbeat envelope period (default 30s)
	SweepEvery     time.Duration    // idle/dead sweep period (default 15m)
	MaxIdle        time.Duration    // eviction threshold (default 1h)
	MaxConns       int              // registry capacity (<=0 unlimited)
	SendQueueSize  int              // per-connection outbound queue
	Clock          func() time.Time // injectable clock for tests; nil => time.Now
}

func (c *Config) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.HeartbeatEvery <= 0 {
		c.HeartbeatEvery = 30 * time.Second
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 15 * time.Minute
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = time.Hour
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
}

// ===== Room keys =====

// UserRoom is the personal inbox room, auto-joined on authentication.
func UserRoom(userID string) string { return "user:" + userID }

// HelpRequestRoom is the per-help-request chat channel, joined explicitly.
func HelpRequestRoom(helpRequestID string) string { return "conversation:" + helpRequestID }

// ===== Records =====

// conn is the canonical connection record. The registry exclusively owns
// it; every field mutation happens under the registry lock. The transport
// layer owns the underlying socket and only signals lifecycle events.
type conn struct {
	id          string
	userID      string // "" until authentication completes
	rooms       map[string]struct{}
	transport   Transport
	connectedAt time.Time
	lastActive  time.Time
}

// ConnInfo is a point-in-time snapshot for introspection and health
// reporting; it never aliases registry-owned state.
type ConnInfo struct {
	ID          string
	UserID      string
	Rooms       []string
	ConnectedAt time.Time
	LastActive  time.Time
}

// Registry owns the set of live connections. All membership mutation and
// every broadcast snapshot goes through the one RWMutex, which is what makes
// a completed join/leave visible to the next broadcast.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*conn
	byUser map[string]map[string]*conn // userID -> connID -> conn

	conf     Config
	onEvict  func(userID string)
	stopOnce sync.Once
	stopCh   chan struct{}
	started  bool
}

func NewRegistry(conf Config) *Registry {
	conf.norm()
	return &Registry{
		byConn: make(map[string]*conn),
		byUser: make(map[string]map[string]*conn),
		conf:   conf,
		stopCh: make(chan struct{}),
	}
}

// SetEvictHook registers fn to run after the sweeper disconnects a user's
// last live connection. The hook runs outside the registry lock.
func (r *Registry) SetEvictHook(fn func(userID string)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// ===== Lifecycle operations =====

// Admit registers a live transport and returns the fresh connection id.
// A known owner is joined to their personal room immediately; an anonymous
// connection holds no rooms until Authenticate. The new connection receives
// a connected envelope carrying its id.
func (r *Registry) Admit(t Transport, ownerUserID string) (string, error) {
	if t == nil {
		return "", errs.New("nil transport")
	}
	now := r.conf.Clock()
	id := ids.GenerateString()

	r.mu.Lock()
	if r.conf.MaxConns > 0 && len(r.byConn) >= r.conf.MaxConns {
		r.mu.Unlock()
		return "", errs.ErrResourceExhausted.WrapMsg("admit", "capacity", r.conf.MaxConns)
	}
	c := &conn{
		id:          id,
		userID:      ownerUserID,
		rooms:       make(map[string]struct{}),
		transport:   t,
		connectedAt: now,
		lastActive:  now,
	}
	if ownerUserID != "" {
		c.rooms[UserRoom(ownerUserID)] = struct{}{}
		r.indexUserLocked(c)
	}
	r.byConn[id] = c
	r.mu.Unlock()

	// Best effort; a transport that dies this early is reaped later.
	_ = t.Send(New(EventConnected, map[string]any{"connectionId": id}))
	return id, nil
}

// Authenticate attaches a verified owner identity to a previously-anonymous
// connection and joins the personal room. Credential verification happens in
// the caller; the registry only records the outcome. Re-authenticating as a
// different user resets the membership set: room grants belong to the owner
// and never transfer between identities.
func (r *Registry) Authenticate(connID, userID string) error {
	if userID == "" {
		return errs.ErrAuthFailed.WithDetail("empty user id").Wrap()
	}
	r.mu.Lock()
	c, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return errs.ErrNotFound.WrapMsg("authenticate", "connId", connID)
	}
	if c.userID != "" && c.userID != userID {
		r.unindexUserLocked(c)
		c.rooms = make(map[string]struct{})
	}
	c.userID = userID
	c.rooms[UserRoom(userID)] = struct{}{}
	r.indexUserLocked(c)
	c.lastActive = r.conf.Clock()
	r.mu.Unlock()
	return nil
}

// JoinRoom adds the room to the connection's membership set. Joining twice
// is a no-op success; each call acknowledges with a room_joined envelope.
func (r *Registry) JoinRoom(connID, roomID string) error {
	r.mu.Lock()
	c, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return errs.ErrNotFound.WrapMsg("join room", "connId", connID)
	}
	c.rooms[roomID] = struct{}{}
	c.lastActive = r.conf.Clock()
	t := c.transport
	r.mu.Unlock()

	_ = t.Send(New(EventRoomJoined, map[string]any{"roomId": roomID}))
	return nil
}

// LeaveRoom is the symmetric removal; acknowledged with room_left.
func (r *Registry) LeaveRoom(connID, roomID string) error {
	r.mu.Lock()
	c, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return errs.ErrNotFound.WrapMsg("leave room", "connId", connID)
	}
	delete(c.rooms, roomID)
	c.lastActive = r.conf.Clock()
	t := c.transport
	r.mu.Unlock()

	_ = t.Send(New(EventRoomLeft, map[string]any{"roomId": roomID}))
	return nil
}

// Touch refreshes the last-activity timestamp; called on every inbound or
// outbound traffic.
func (r *Registry) Touch(connID string) {
	now := r.conf.Clock()
	r.mu.Lock()
	if c, ok := r.byConn[connID]; ok {
		c.lastActive = now
	}
	r.mu.Unlock()
}

// Remove unconditionally deletes the record; idempotent. The transport is
// closed outside the lock.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	c, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.byConn, connID)
	r.unindexUserLocked(c)
	t := c.transport
	r.mu.Unlock()

	_ = t.Close()
}

// Get returns a snapshot of the connection, or false after Remove or
// transport close has reaped it.
func (r *Registry) Get(connID string) (ConnInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	if !ok {
		return ConnInfo{}, false
	}
	return snapshotLocked(c), true
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// InRoom reports whether the connection currently holds the room.
func (r *Registry) InRoom(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	if !ok {
		return false
	}
	_, in := c.rooms[roomID]
	return in
}

// ===== Internal index maintenance (lock held) =====

func (r *Registry) indexUserLocked(c *conn) {
	if c.userID == "" {
		return
	}
	m := r.byUser[c.userID]
	if m == nil {
		m = make(map[string]*conn)
		r.byUser[c.userID] = m
	}
	m[c.id] = c
}

func (r *Registry) unindexUserLocked(c *conn) {
	if c.userID == "" {
		return
	}
	if m := r.byUser[c.userID]; m != nil {
		delete(m, c.id)
		if len(m) == 0 {
			delete(r.byUser, c.userID)
		}
	}
}

func snapshotLocked(c *conn) ConnInfo {
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return ConnInfo{
		ID:          c.id,
		UserID:      c.userID,
		Rooms:       rooms,
		ConnectedAt: c.connectedAt,
		LastActive:  c.lastActive,
	}
}
