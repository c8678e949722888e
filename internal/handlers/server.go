// internal/handlers/server.go
package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jwhuang/honest-party/internal/game"
	"github.com/jwhuang/honest-party/internal/metrics"
	"github.com/jwhuang/honest-party/internal/question"
)

// outboundQueueSize bounds each connection's pending pushes. A client that
// cannot drain this many messages is dropped from the send (see sendTo)
// and recovers via room:sync.
const outboundQueueSize = 16

// Server is the high-level struct that owns the room registry, the
// question bank, and the table of live connections. One instance serves
// the whole process.
type Server struct {
	Registry *game.Registry
	Bank     *question.Bank
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics

	mu    sync.Mutex
	conns map[uuid.UUID]chan any
}

// NewServer wires an empty registry to the given bank.
func NewServer(bank *question.Bank, logger *logrus.Logger, m *metrics.Metrics) *Server {
	return &Server{
		Registry: game.NewRegistry(),
		Bank:     bank,
		Logger:   logger,
		Metrics:  m,
		conns:    make(map[uuid.UUID]chan any),
	}
}

// register adds a connection's outbound queue to the table. Events for a
// connection are routed here from the moment the socket is accepted, even
// before it joins a room.
func (s *Server) register(id uuid.UUID, out chan any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = out
}

// unregister drops a connection from the table.
func (s *Server) unregister(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// sendTo pushes a payload onto a connection's outbound queue without
// blocking. A full queue drops the payload; the engine never waits on a
// slow client.
func (s *Server) sendTo(id uuid.UUID, payload any) {
	s.mu.Lock()
	out, ok := s.conns[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case out <- payload:
	default:
		s.Logger.Warnf("outbound queue full for connection %s, dropping message", id)
	}
}

// AttachDispatch wires a room's notification plan to the connection table.
// Both functions are called by the engine with the room lock held, so they
// only touch the server's own table and the per-connection queues.
func (s *Server) AttachDispatch(room *game.Room) {
	room.BroadcastFn = func(to []uuid.UUID, ev game.Event) {
		for _, id := range to {
			s.sendTo(id, ev)
		}
	}
	room.BroadcastToPlayerFn = func(to uuid.UUID, ev game.Event) {
		s.sendTo(to, ev)
	}
}

// LoadBank re-reads the question bank, logging loudly when it comes back
// empty since that indicates a configuration problem rather than a user
// error.
func (s *Server) LoadBank() ([]question.Question, error) {
	qs, err := s.Bank.Load()
	if err != nil {
		s.Logger.Errorf("question bank load failed (%s): %v", s.Bank.Path, err)
		return nil, err
	}
	if len(qs) == 0 {
		s.Logger.Errorf("question bank is empty (%s): check the CSV contents", s.Bank.Path)
	}
	return qs, nil
}
