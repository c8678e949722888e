// internal/handlers/handlers_test.go
package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwhuang/honest-party/internal/game"
	"github.com/jwhuang/honest-party/internal/metrics"
	"github.com/jwhuang/honest-party/internal/question"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewServer(question.NewBank("testdata/absent.csv"), logger, metrics.New("test"))
}

func TestDispatchRoutesToRegisteredConnections(t *testing.T) {
	srv := newTestServer(t)

	hostID, memberID := uuid.New(), uuid.New()
	hostOut := make(chan any, outboundQueueSize)
	memberOut := make(chan any, outboundQueueSize)
	srv.register(hostID, hostOut)
	srv.register(memberID, memberOut)

	room := srv.Registry.CreateRoom(hostID, "Alice")
	srv.AttachDispatch(room)

	ev := game.Event{Type: game.EventRoomState, State: &game.RoomState{RoomID: room.ID}}
	room.BroadcastFn([]uuid.UUID{hostID, memberID, uuid.New()}, ev)

	require.Len(t, hostOut, 1)
	require.Len(t, memberOut, 1)
	got := (<-hostOut).(game.Event)
	assert.Equal(t, game.EventRoomState, got.Type)

	// Unicast reaches only its target.
	room.BroadcastToPlayerFn(memberID, game.Event{Type: game.EventRoundRole, Role: game.RoleThinker})
	assert.Len(t, hostOut, 0)
	require.Len(t, memberOut, 2)

	// Unregistered connections are skipped without blocking.
	srv.unregister(memberID)
	room.BroadcastToPlayerFn(memberID, ev)
	assert.Len(t, memberOut, 1)
}

func newTestSession(t *testing.T, srv *Server) *session {
	t.Helper()
	sess := &session{
		id:     uuid.New(),
		out:    make(chan any, outboundQueueSize),
		srv:    srv,
		logger: srv.Logger,
	}
	srv.register(sess.id, sess.out)
	return sess
}

func TestSessionIsInAtMostOneRoom(t *testing.T) {
	srv := newTestServer(t)

	alice := newTestSession(t, srv)
	alice.handle(clientMessage{Type: opRoomCreate, Name: "Alice"})
	firstRoom := alice.roomID
	require.NotEmpty(t, firstRoom)

	bob := newTestSession(t, srv)
	bob.handle(clientMessage{Type: opRoomCreate, Name: "Bob"})
	require.NotEmpty(t, bob.roomID)

	// Joining Bob's room implies leaving the first. Alice was its sole
	// member, so it disappears.
	alice.handle(clientMessage{Type: opRoomJoin, RoomID: bob.roomID, Name: "Alice"})
	assert.Equal(t, bob.roomID, alice.roomID)
	_, ok := srv.Registry.GetRoom(firstRoom)
	assert.False(t, ok, "abandoned solo room must be deleted")

	room, ok := srv.Registry.GetRoom(bob.roomID)
	require.True(t, ok)
	assert.Len(t, room.State().Players, 2)

	// Creating while joined also vacates the current room first.
	alice.handle(clientMessage{Type: opRoomCreate, Name: "Alice"})
	assert.NotEqual(t, bob.roomID, alice.roomID)
	assert.Len(t, room.State().Players, 1)
	assert.Equal(t, 2, srv.Registry.Count())
}

func TestRejoinOwnRoomKeepsSingleMembership(t *testing.T) {
	srv := newTestServer(t)

	host := newTestSession(t, srv)
	host.handle(clientMessage{Type: opRoomCreate, Name: "Alice"})

	bob := newTestSession(t, srv)
	bob.handle(clientMessage{Type: opRoomJoin, RoomID: host.roomID, Name: "Bob"})
	require.Equal(t, host.roomID, bob.roomID)

	// A repeat join of the same room renames without adding a seat.
	bob.handle(clientMessage{Type: opRoomJoin, RoomID: host.roomID, Name: "Bobby"})
	assert.Equal(t, host.roomID, bob.roomID)

	room, ok := srv.Registry.GetRoom(host.roomID)
	require.True(t, ok)
	state := room.State()
	require.Len(t, state.Players, 2)
	assert.Equal(t, "Bobby", state.Players[1].Name)
}

func TestSendToDropsWhenQueueFull(t *testing.T) {
	srv := newTestServer(t)

	id := uuid.New()
	out := make(chan any, 1)
	srv.register(id, out)

	srv.sendTo(id, "first")
	srv.sendTo(id, "second") // queue full, must not block

	require.Len(t, out, 1)
	assert.Equal(t, "first", <-out)
}

func TestAckMessageShape(t *testing.T) {
	ok := ackMessage{Type: "ack", Op: opRoomCreate, OK: true, RoomID: "123456"}
	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ack","op":"room:create","ok":true,"roomId":"123456"}`, string(raw))

	fail := ackMessage{Type: "ack", Op: opRoundStart, OK: false, Error: game.ErrNotHost.Error()}
	raw, err = json.Marshal(fail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ok":false`)
	assert.Contains(t, string(raw), game.ErrNotHost.Error())
}

func TestServeRoomQR(t *testing.T) {
	srv := newTestServer(t)
	handler := ServeRoomQR(srv.Logger, srv)

	room := srv.Registry.CreateRoom(uuid.New(), "Alice")

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/rooms/"+room.ID+"/qr", nil))
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	// PNG signature.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes()[:4])

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/rooms/000000/qr", nil))
	assert.Equal(t, 404, w.Code)

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/rooms/garbage", nil))
	assert.Equal(t, 404, w.Code)
}

func TestServeHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	ServeHealthCheck()(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}
