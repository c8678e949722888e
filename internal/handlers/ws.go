// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jwhuang/honest-party/internal/game"
	"github.com/jwhuang/honest-party/internal/middleware"
)

// Requests a client can issue over the socket. The identifiers follow the
// event protocol the web client speaks.
const (
	opRoomCreate  = "room:create"
	opRoomJoin    = "room:join"
	opRoomLeave   = "room:leave"
	opRoomSync    = "room:sync"
	opRoundStart  = "round:start"
	opRoundSkip   = "round:skipQuestion"
	opRoundReroll = "round:rerollRoles"
)

// clientMessage is the shape of every incoming request.
type clientMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`
}

// ackMessage is the synchronous result for a single request, standing in
// for the acknowledgement callbacks of the browser protocol. Exactly one
// ack is sent per request, to the requesting connection only.
type ackMessage struct {
	Type   string          `json:"type"` // always "ack"
	Op     string          `json:"op"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	RoomID string          `json:"roomId,omitempty"`
	State  *game.RoomState `json:"state,omitempty"`
}

// session tracks one live connection. The connection id doubles as the
// player id everywhere; a session is a member of at most one room at a
// time.
type session struct {
	id     uuid.UUID
	out    chan any
	srv    *Server
	logger *logrus.Logger

	// roomID is the room this connection currently belongs to, "" when
	// none. Only the read pump goroutine touches it.
	roomID string
}

// WSHandler upgrades the HTTP connection and runs the session until the
// socket closes. Membership cleanup runs exactly once, whether the client
// left explicitly or just vanished.
func WSHandler(logger *logrus.Logger, srv *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"party"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "party" {
			c.Close(BadSubprotocolError, "client must speak the party subprotocol")
			return
		}

		sess := &session{
			id:     uuid.New(),
			out:    make(chan any, outboundQueueSize),
			srv:    srv,
			logger: logger,
		}
		srv.register(sess.id, sess.out)
		srv.Metrics.IncOnlinePlayers()
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, sess.out, logger)
		readErr := sess.readPump(ctx, c)

		// Cleanup: remove from whichever room still lists this
		// connection, then stop routing to it.
		if sess.roomID != "" {
			srv.Registry.RemovePlayer(sess.roomID, sess.id)
			srv.Metrics.SetActiveRooms(srv.Registry.Count())
		}
		srv.unregister(sess.id)
		srv.Metrics.DecOnlinePlayers()
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

// readPump reads client messages until the socket closes, routing each one
// to completion before the next is read. Returns the terminal read error,
// or nil for a normal closure.
func (s *session) readPump(ctx context.Context, c *websocket.Conn) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.logger.Warnf("connection %s sent non-text message type %d, ignoring", s.id, typ)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warnf("invalid json from connection %s: %v", s.id, err)
			s.ackErr("", errors.New("invalid JSON format"))
			continue
		}

		s.srv.Metrics.IncMessagesReceived()
		s.handle(msg)
	}
}

// handle routes one request. Each case mutates via the registry or the
// round engine and finishes with exactly one ack.
func (s *session) handle(msg clientMessage) {
	switch msg.Type {
	case opRoomCreate:
		s.handleCreate(msg)
	case opRoomJoin:
		s.handleJoin(msg)
	case opRoomLeave:
		s.handleLeave(msg)
	case opRoomSync:
		s.handleSync(msg)
	case opRoundStart, opRoundSkip, opRoundReroll:
		s.handleRound(msg)
	default:
		s.logger.Warnf("unknown message type %q from connection %s", msg.Type, s.id)
		s.ackErr(msg.Type, fmt.Errorf("unknown message type: %s", msg.Type))
	}
}

func (s *session) handleCreate(msg clientMessage) {
	// One room per connection: creating while still in a room implies
	// leaving it first.
	s.leaveCurrent()

	room := s.srv.Registry.CreateRoom(s.id, msg.Name)
	s.srv.AttachDispatch(room)
	s.roomID = room.ID
	s.srv.Metrics.SetActiveRooms(s.srv.Registry.Count())

	s.ackOK(ackMessage{Op: opRoomCreate, RoomID: room.ID})
	room.BroadcastState()
	s.logger.Infof("connection %s created room %s", s.id, room.ID)
}

func (s *session) handleJoin(msg clientMessage) {
	if s.roomID != "" && s.roomID != msg.RoomID {
		s.leaveCurrent()
	}

	room, err := s.srv.Registry.JoinRoom(msg.RoomID, s.id, msg.Name)
	if err != nil {
		s.ackErr(opRoomJoin, err)
		return
	}
	s.roomID = room.ID

	// Room state was already broadcast by the join itself.
	s.ackOK(ackMessage{Op: opRoomJoin, RoomID: room.ID})
	s.logger.Infof("connection %s joined room %s", s.id, room.ID)
}

func (s *session) handleLeave(msg clientMessage) {
	s.srv.Registry.RemovePlayer(msg.RoomID, s.id)
	if msg.RoomID == s.roomID {
		s.roomID = ""
	}
	s.srv.Metrics.SetActiveRooms(s.srv.Registry.Count())

	// Leaving is idempotent; it always acks ok.
	s.ackOK(ackMessage{Op: opRoomLeave})
}

func (s *session) handleSync(msg clientMessage) {
	room, ok := s.srv.Registry.GetRoom(msg.RoomID)
	if !ok {
		s.ackErr(opRoomSync, game.ErrRoomNotFound)
		return
	}

	state, events := room.SyncFor(s.id)
	s.ackOK(ackMessage{Op: opRoomSync, RoomID: state.RoomID, State: &state})

	// Re-push the active question and this connection's role so a
	// refreshed client catches up. These go to the caller only.
	for _, ev := range events {
		s.srv.sendTo(s.id, ev)
	}
}

func (s *session) handleRound(msg clientMessage) {
	room, ok := s.srv.Registry.GetRoom(msg.RoomID)
	if !ok {
		s.ackErr(msg.Type, game.ErrRoomNotFound)
		return
	}

	var err error
	switch msg.Type {
	case opRoundStart:
		bank, loadErr := s.srv.LoadBank()
		if loadErr != nil {
			s.ackErr(msg.Type, loadErr)
			return
		}
		if err = room.StartRound(s.id, bank); err == nil {
			s.srv.Metrics.IncRoundsStarted()
		}
	case opRoundSkip:
		bank, loadErr := s.srv.LoadBank()
		if loadErr != nil {
			s.ackErr(msg.Type, loadErr)
			return
		}
		err = room.SkipQuestion(s.id, bank)
	case opRoundReroll:
		err = room.RerollRoles(s.id)
	}

	if err != nil {
		s.ackErr(msg.Type, err)
		return
	}
	s.ackOK(ackMessage{Op: msg.Type, RoomID: room.ID})
}

// leaveCurrent removes this connection from its current room, if any.
func (s *session) leaveCurrent() {
	if s.roomID == "" {
		return
	}
	s.srv.Registry.RemovePlayer(s.roomID, s.id)
	s.roomID = ""
	s.srv.Metrics.SetActiveRooms(s.srv.Registry.Count())
}

func (s *session) ackOK(ack ackMessage) {
	ack.Type = "ack"
	ack.OK = true
	s.srv.sendTo(s.id, ack)
}

func (s *session) ackErr(op string, err error) {
	s.srv.sendTo(s.id, ackMessage{Type: "ack", Op: op, OK: false, Error: err.Error()})
}

// writePump drains the session's outbound queue onto the socket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, out chan any, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-out:
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Warnf("failed to marshal outgoing message: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				// The read pump notices the broken connection and
				// handles cleanup.
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
