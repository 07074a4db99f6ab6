package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastRoomDeliversToMembersOnly(t *testing.T) {
	reg := newTestRegistry()
	a, b, c := newFakeTransport(), newFakeTransport(), newFakeTransport()

	idA, _ := reg.Admit(a, "u1")
	idB, _ := reg.Admit(b, "u2")
	_, _ = reg.Admit(c, "u3")

	room := HelpRequestRoom("42")
	require.NoError(t, reg.JoinRoom(idA, room))
	require.NoError(t, reg.JoinRoom(idB, room))

	n := reg.BroadcastRoom(room, New(EventNewMessage, map[string]any{"body": "hello"}))
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, a.countType(EventNewMessage))
	assert.Equal(t, 1, b.countType(EventNewMessage))
	assert.Equal(t, 0, c.countType(EventNewMessage), "non-member must not receive")
}

func TestBroadcastRoomSkipsDeadConnection(t *testing.T) {
	reg := newTestRegistry()
	a, b := newFakeTransport(), newFakeTransport()
	idA, _ := reg.Admit(a, "u1")
	idB, _ := reg.Admit(b, "u2")

	room := HelpRequestRoom("9")
	_ = reg.JoinRoom(idA, room)
	_ = reg.JoinRoom(idB, room)
	_ = b.Close()

	n := reg.BroadcastRoom(room, New(EventNewMessage, nil))
	assert.Equal(t, 1, n)
}

func TestBroadcastRoomAfterLeaveExcludesConnection(t *testing.T) {
	reg := newTestRegistry()
	a := newFakeTransport()
	idA, _ := reg.Admit(a, "u1")

	room := HelpRequestRoom("7")
	_ = reg.JoinRoom(idA, room)
	_ = reg.LeaveRoom(idA, room)

	n := reg.BroadcastRoom(room, New(EventNewMessage, nil))
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, a.countType(EventNewMessage))
}

func TestSendToConnReturnsFalseNeverErrors(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()
	id, _ := reg.Admit(tr, "u1")

	assert.True(t, reg.SendToConn(id, New(EventPong, nil)))

	_ = tr.Close()
	assert.False(t, reg.SendToConn(id, New(EventPong, nil)))

	assert.False(t, reg.SendToConn("unknown", New(EventPong, nil)))
}

func TestSendToConnSlowClientSkipped(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()
	tr.full = true
	id, _ := reg.Admit(tr, "u1")

	assert.False(t, reg.SendToConn(id, New(EventPong, nil)))
}

func TestBroadcastUserFirstLiveConnectionOnly(t *testing.T) {
	reg := newTestRegistry()
	a, b := newFakeTransport(), newFakeTransport()
	_, _ = reg.Admit(a, "u1")
	_, _ = reg.Admit(b, "u1")

	ok := reg.BroadcastUser("u1", New(EventNewMessage, nil))
	assert.True(t, ok)
	// Single-active-session semantics: exactly one device hears it.
	assert.Equal(t, 1, a.countType(EventNewMessage)+b.countType(EventNewMessage))
}

func TestBroadcastUserNoLiveConnection(t *testing.T) {
	reg := newTestRegistry()
	ok := reg.BroadcastUser("ghost", New(EventNewMessage, nil))
	assert.False(t, ok)
}

func TestBroadcastAllCountsDeliveries(t *testing.T) {
	reg := newTestRegistry()
	a, b := newFakeTransport(), newFakeTransport()
	_, _ = reg.Admit(a, "u1")
	_, _ = reg.Admit(b, "")

	n := reg.BroadcastAll(New(EventHeartbeat, nil))
	assert.Equal(t, 2, n)
}

func TestMultiDeviceFanOutViaUserRoom(t *testing.T) {
	reg := newTestRegistry()
	a, b := newFakeTransport(), newFakeTransport()
	_, _ = reg.Admit(a, "u1")
	_, _ = reg.Admit(b, "u1")

	n := reg.BroadcastRoom(UserRoom("u1"), New(EventNewMessage, nil))
	assert.Equal(t, 2, n, "personal room reaches every device")
}
