package realtime

import (
	"time"

	"HelpLink/logger"
	"HelpLink/tools/safe"

	"go.uber.org/zap"
)

// Liveness supervision: a fast heartbeat timer tells clients the stream is
// alive; a slow sweep timer evicts connections that went idle or whose
// transport died without a close event. Both timers are owned by the
// registry lifecycle so tests can run independent instances.

// Start launches the heartbeat and sweep timers. Calling Start twice is a
// no-op.
func (r *Registry) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	safe.Go(func() {
		hb := time.NewTicker(r.conf.HeartbeatEvery)
		sweep := time.NewTicker(r.conf.SweepEvery)
		defer hb.Stop()
		defer sweep.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-hb.C:
				r.HeartbeatOnce()
			case now := <-sweep.C:
				r.SweepOnce(now)
			}
		}
	})
}

// HeartbeatOnce emits one heartbeat envelope to every live connection and
// returns the delivered count. Zero connections is zero deliveries, not an
// error.
func (r *Registry) HeartbeatOnce() int {
	env := New(EventHeartbeat, map[string]any{"serverTime": r.conf.Clock().UnixMilli()})
	return r.BroadcastAll(env)
}

// SweepOnce evicts connections idle past MaxIdle or whose transport reports
// dead. The scan mutates the registry only; closing the evicted transports
// and running the evict hook happen after the lock is released, so the sweep
// never blocks on delivery to dead peers. The hook fires once per user whose
// last live connection was evicted, keeping presence marks consistent when
// the transport died without a close event.
func (r *Registry) SweepOnce(now time.Time) int {
	var (
		evicted []*conn
		offline []string
	)

	r.mu.Lock()
	for id, c := range r.byConn {
		if now.Sub(c.lastActive) > r.conf.MaxIdle || !c.transport.Alive() {
			delete(r.byConn, id)
			r.unindexUserLocked(c)
			evicted = append(evicted, c)
			if c.userID != "" {
				if _, live := r.byUser[c.userID]; !live {
					offline = append(offline, c.userID)
				}
			}
		}
	}
	hook := r.onEvict
	r.mu.Unlock()

	for _, c := range evicted {
		_ = c.transport.Close()
	}
	if hook != nil {
		for _, user := range offline {
			hook(user)
		}
	}
	if len(evicted) > 0 {
		logger.Info("swept connections", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Shutdown is a scoped drain: stop the timers first so no new heartbeat is
// written, then close every live transport, then clear the registry. No
// write is attempted after a handle is closed.
func (r *Registry) Shutdown() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	conns := make([]*conn, 0, len(r.byConn))
	for _, c := range r.byConn {
		conns = append(conns, c)
	}
	r.byConn = make(map[string]*conn)
	r.byUser = make(map[string]map[string]*conn)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.transport.Close()
	}
}
