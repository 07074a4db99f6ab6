package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"HelpLink/store"
	"HelpLink/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type serverFixture struct {
	srv *Server
	r   *gin.Engine
	mem *store.MemStore
}

// testVerify accepts tokens of the form "tok:<userID>".
func testVerify(token string) (string, error) {
	if len(token) > 4 && token[:4] == "tok:" {
		return token[4:], nil
	}
	return "", errs.ErrAuthFailed.Wrap()
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	mem := store.NewMemStore()
	reg := NewRegistry(Config{})
	pipe := NewPipeline(mem, mem, reg, 0)
	srv := NewServer(reg, pipe, testVerify, "gw-test", 0)
	r := gin.New()
	srv.Routes(r)
	t.Cleanup(reg.Shutdown)
	return &serverFixture{srv: srv, r: r, mem: mem}
}

func (f *serverFixture) post(t *testing.T, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *serverFixture) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)
	_, _ = f.srv.Registry().Admit(newFakeTransport(), "u1")

	w := f.get(t, "/realtime/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["activeConnections"])
	assert.Equal(t, "gw-test", body["node"])
}

func TestControlPlaneRequiresToken(t *testing.T) {
	f := newServerFixture(t)

	w := f.post(t, "/realtime/join-room", "", map[string]any{
		"helpRequestId": "42", "connectionId": "c1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.post(t, "/realtime/join-room", "garbage", map[string]any{
		"helpRequestId": "42", "connectionId": "c1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJoinRoomOverControlPlane(t *testing.T) {
	f := newServerFixture(t)
	connID, err := f.srv.Registry().Admit(newFakeTransport(), "u1")
	require.NoError(t, err)

	w := f.post(t, "/realtime/join-room", "tok:u1", map[string]any{
		"helpRequestId": "42", "connectionId": connID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.srv.Registry().InRoom(connID, HelpRequestRoom("42")))
}

func TestJoinRoomRejectsForeignConnection(t *testing.T) {
	f := newServerFixture(t)
	connID, _ := f.srv.Registry().Admit(newFakeTransport(), "u1")

	// u2 may not attach rooms to u1's connection.
	w := f.post(t, "/realtime/join-room", "tok:u2", map[string]any{
		"helpRequestId": "42", "connectionId": connID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, f.srv.Registry().InRoom(connID, HelpRequestRoom("42")))
}

func TestJoinRoomUnknownConnectionIs404(t *testing.T) {
	f := newServerFixture(t)

	w := f.post(t, "/realtime/join-room", "tok:u1", map[string]any{
		"helpRequestId": "42", "connectionId": "nope",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaveRoomOverControlPlane(t *testing.T) {
	f := newServerFixture(t)
	connID, _ := f.srv.Registry().Admit(newFakeTransport(), "u1")
	require.NoError(t, f.srv.Registry().JoinRoom(connID, HelpRequestRoom("42")))

	w := f.post(t, "/realtime/leave-room", "tok:u1", map[string]any{
		"helpRequestId": "42", "connectionId": connID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.srv.Registry().InRoom(connID, HelpRequestRoom("42")))
}

func TestSendMessageOverControlPlane(t *testing.T) {
	f := newServerFixture(t)
	f.mem.PutProfile(store.UserProfile{ID: "u1", DisplayName: "Ada"})
	tr := newFakeTransport()
	connID, _ := f.srv.Registry().Admit(tr, "u2")
	require.NoError(t, f.srv.Registry().JoinRoom(connID, HelpRequestRoom("42")))

	w := f.post(t, "/realtime/send-message", "tok:u1", map[string]any{
		"helpRequestId": "42", "message": "hello",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["messageId"])
	assert.Equal(t, 1, tr.countType(EventNewMessage))
}

func TestSendMessageValidationIs400(t *testing.T) {
	f := newServerFixture(t)

	w := f.post(t, "/realtime/send-message", "tok:u1", map[string]any{
		"helpRequestId": "42", "message": "  ",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessagePersistenceFailureIs500(t *testing.T) {
	f := newServerFixture(t)
	f.mem.FailNextInsert(errs.New("down"))

	w := f.post(t, "/realtime/send-message", "tok:u1", map[string]any{
		"helpRequestId": "42", "message": "hello",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSendMessageMissingFieldsIs400(t *testing.T) {
	f := newServerFixture(t)

	w := f.post(t, "/realtime/send-message", "tok:u1", map[string]any{
		"helpRequestId": "42",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	f := newServerFixture(t)
	for _, body := range []string{"one", "two"} {
		_, err := f.srv.Pipe().HandleSend(context.Background(), "u1", "42", body)
		require.NoError(t, err)
	}

	w := f.get(t, "/realtime/messages/42", "tok:u1")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "one", first["body"])
}
