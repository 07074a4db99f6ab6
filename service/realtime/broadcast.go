package realtime

// Broadcast operations. The room snapshot is taken under the read lock;
// delivery happens outside it against per-connection queues, so a hung peer
// never stalls the other recipients.

// SendToConn delivers the envelope to one connection if its transport is
// still live. Returns false, never an error, when the transport is gone or
// its queue is full -- callers treat delivery as best effort.
func (r *Registry) SendToConn(connID string, env Envelope) bool {
	r.mu.RLock()
	c, ok := r.byConn[connID]
	var t Transport
	if ok {
		t = c.transport
	}
	r.mu.RUnlock()

	if t == nil || !t.Alive() {
		return false
	}
	if err := t.Send(env); err != nil {
		return false
	}
	r.Touch(connID)
	return true
}

// BroadcastRoom delivers to every live connection whose membership contains
// roomID at call time, returning the count of successful deliveries. A
// connection destroyed mid-iteration is skipped.
func (r *Registry) BroadcastRoom(roomID string, env Envelope) int {
	r.mu.RLock()
	targets := make([]deliveryTarget, 0, 8)
	for id, c := range r.byConn {
		if _, in := c.rooms[roomID]; in {
			targets = append(targets, deliveryTarget{id: id, t: c.transport})
		}
	}
	r.mu.RUnlock()

	return r.deliver(targets, env)
}

// BroadcastUser delivers to the first live connection owned by the user.
// Single-active-session semantics: additional devices for the same user are
// not addressed here; callers needing multi-device fan-out broadcast to the
// user's personal room instead.
func (r *Registry) BroadcastUser(userID string, env Envelope) bool {
	r.mu.RLock()
	targets := make([]deliveryTarget, 0, 1)
	for id, c := range r.byUser[userID] {
		targets = append(targets, deliveryTarget{id: id, t: c.transport})
	}
	r.mu.RUnlock()

	for _, tgt := range targets {
		if tgt.t != nil && tgt.t.Alive() {
			if tgt.t.Send(env) == nil {
				r.Touch(tgt.id)
				return true
			}
		}
	}
	return false
}

// BroadcastAll delivers to every live connection; used for heartbeats and
// operational announcements.
func (r *Registry) BroadcastAll(env Envelope) int {
	r.mu.RLock()
	targets := make([]deliveryTarget, 0, len(r.byConn))
	for id, c := range r.byConn {
		targets = append(targets, deliveryTarget{id: id, t: c.transport})
	}
	r.mu.RUnlock()

	return r.deliver(targets, env)
}

type deliveryTarget struct {
	id string
	t  Transport
}

func (r *Registry) deliver(targets []deliveryTarget, env Envelope) int {
	n := 0
	for _, tgt := range targets {
		if tgt.t == nil || !tgt.t.Alive() {
			continue
		}
		if tgt.t.Send(env) == nil {
			r.Touch(tgt.id)
			n++
		}
	}
	return n
}
