package realtime

import (
	"testing"
	"time"

	"HelpLink/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(Config{})
}

func TestAdmitAssignsIDAndConnectedEnvelope(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()

	id, err := reg.Admit(tr, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	info, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, "u1", info.UserID)
	assert.Contains(t, info.Rooms, UserRoom("u1"))

	envs := tr.envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, EventConnected, envs[0].Type)
	data, ok := envs[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, data["connectionId"])
}

func TestAdmitAnonymousHasNoRooms(t *testing.T) {
	reg := newTestRegistry()
	id, err := reg.Admit(newFakeTransport(), "")
	require.NoError(t, err)

	info, ok := reg.Get(id)
	require.True(t, ok)
	assert.Empty(t, info.UserID)
	assert.Empty(t, info.Rooms)
}

func TestAdmitAtCapacityReportsResourceExhausted(t *testing.T) {
	reg := NewRegistry(Config{MaxConns: 1})
	_, err := reg.Admit(newFakeTransport(), "u1")
	require.NoError(t, err)

	_, err = reg.Admit(newFakeTransport(), "u2")
	require.Error(t, err)
	assert.Equal(t, errs.CodeResourceExhausted, errs.CodeOf(err))
	assert.Equal(t, 1, reg.Count())
}

func TestAuthenticateJoinsPersonalRoom(t *testing.T) {
	reg := newTestRegistry()
	id, _ := reg.Admit(newFakeTransport(), "")

	require.NoError(t, reg.Authenticate(id, "u7"))

	info, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, "u7", info.UserID)
	assert.Contains(t, info.Rooms, UserRoom("u7"))
}

func TestAuthenticateOwnerChangeResetsRooms(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()
	id, _ := reg.Admit(tr, "")

	require.NoError(t, reg.Authenticate(id, "alice"))
	require.NoError(t, reg.JoinRoom(id, HelpRequestRoom("42")))

	require.NoError(t, reg.Authenticate(id, "mallory"))

	assert.False(t, reg.InRoom(id, UserRoom("alice")), "old owner's inbox must not follow the connection")
	assert.False(t, reg.InRoom(id, HelpRequestRoom("42")), "room grants must not transfer between owners")
	assert.True(t, reg.InRoom(id, UserRoom("mallory")))

	// The old inbox no longer reaches this connection.
	assert.Equal(t, 0, reg.BroadcastRoom(UserRoom("alice"), New(EventNewMessage, nil)))
	assert.False(t, reg.BroadcastUser("alice", New(EventNewMessage, nil)))
	assert.True(t, reg.BroadcastUser("mallory", New(EventNewMessage, nil)))
}

func TestAuthenticateSameUserKeepsRooms(t *testing.T) {
	reg := newTestRegistry()
	id, _ := reg.Admit(newFakeTransport(), "")

	require.NoError(t, reg.Authenticate(id, "alice"))
	require.NoError(t, reg.JoinRoom(id, HelpRequestRoom("42")))

	// Token refresh for the same identity is not an owner change.
	require.NoError(t, reg.Authenticate(id, "alice"))
	assert.True(t, reg.InRoom(id, HelpRequestRoom("42")))
}

func TestAuthenticateUnknownConnection(t *testing.T) {
	reg := newTestRegistry()
	err := reg.Authenticate("nope", "u1")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestJoinRoomIsIdempotent(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()
	id, _ := reg.Admit(tr, "u1")

	require.NoError(t, reg.JoinRoom(id, HelpRequestRoom("42")))
	info, _ := reg.Get(id)
	before := len(info.Rooms)

	require.NoError(t, reg.JoinRoom(id, HelpRequestRoom("42")))
	info, _ = reg.Get(id)
	assert.Equal(t, before, len(info.Rooms), "second join must not grow membership")

	// Each call still acknowledges.
	assert.Equal(t, 2, tr.countType(EventRoomJoined))
}

func TestLeaveRoomRemovesMembership(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()
	id, _ := reg.Admit(tr, "u1")

	require.NoError(t, reg.JoinRoom(id, HelpRequestRoom("42")))
	require.NoError(t, reg.LeaveRoom(id, HelpRequestRoom("42")))

	assert.False(t, reg.InRoom(id, HelpRequestRoom("42")))
	assert.Equal(t, EventRoomLeft, tr.lastType())
}

func TestJoinRoomUnknownConnection(t *testing.T) {
	reg := newTestRegistry()
	err := reg.JoinRoom("nope", HelpRequestRoom("42"))
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestRemoveIsIdempotentAndClosesTransport(t *testing.T) {
	reg := newTestRegistry()
	tr := newFakeTransport()
	id, _ := reg.Admit(tr, "u1")

	reg.Remove(id)
	_, ok := reg.Get(id)
	assert.False(t, ok)
	assert.False(t, tr.Alive())

	// Second remove is a no-op, not an error.
	reg.Remove(id)
	assert.Equal(t, 0, reg.Count())
}

func TestTouchUpdatesLastActive(t *testing.T) {
	now := time.Unix(1000, 0)
	reg := NewRegistry(Config{Clock: func() time.Time { return now }})
	id, _ := reg.Admit(newFakeTransport(), "u1")

	now = now.Add(5 * time.Minute)
	reg.Touch(id)

	info, _ := reg.Get(id)
	assert.Equal(t, now, info.LastActive)
}
