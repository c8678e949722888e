// internal/game/room.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// Player is one member of a room. Its ID is the id of the websocket
// connection that joined; the player exists exactly as long as that
// connection is a member.
type Player struct {
	ID   uuid.UUID
	Name string
}

// BroadcastFunc delivers an event to every listed connection. The engine
// calls it with the room lock held, so implementations must not call back
// into the room.
type BroadcastFunc func(to []uuid.UUID, ev Event)

// BroadcastToPlayerFunc delivers an event to a single connection. Same
// locking caveat as BroadcastFunc.
type BroadcastToPlayerFunc func(to uuid.UUID, ev Event)

// Room holds everything for one party session: members, the host, and at
// most one active round. All mutation happens under Mu; every handler
// completes its read-modify-write before releasing the lock, so a question
// draw can never interleave with another action on the same room.
type Room struct {
	ID      string
	HostID  uuid.UUID
	Players map[uuid.UUID]*Player
	Round   *Round

	// order records join sequence. Host promotion picks the earliest
	// joined remaining player, and role draws index into this slice, so
	// behavior never depends on map iteration order.
	order []uuid.UUID

	// closed is set when the registry deletes the room, so a join racing
	// the last leave cannot resurrect it.
	closed bool

	Mu sync.Mutex

	BroadcastFn         BroadcastFunc
	BroadcastToPlayerFn BroadcastToPlayerFunc
}

// playerIDsLocked returns a copy of the member ids in join order.
func (r *Room) playerIDsLocked() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.order))
	copy(ids, r.order)
	return ids
}

// stateLocked builds the public snapshot of the room.
func (r *Room) stateLocked() *RoomState {
	players := make([]PlayerInfo, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, PlayerInfo{ID: id.String(), Name: r.Players[id].Name})
	}
	hostID := ""
	if r.HostID != uuid.Nil {
		hostID = r.HostID.String()
	}
	return &RoomState{RoomID: r.ID, HostID: hostID, Players: players}
}

// State returns the public snapshot of the room.
func (r *Room) State() RoomState {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return *r.stateLocked()
}

// BroadcastState pushes the current snapshot to every member.
func (r *Room) BroadcastState() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.broadcastStateLocked()
}

func (r *Room) broadcastStateLocked() {
	if r.BroadcastFn == nil {
		return
	}
	r.BroadcastFn(r.playerIDsLocked(), Event{Type: EventRoomState, State: r.stateLocked()})
}

// broadcastQuestionLocked pushes the public view of the active question to
// every member. The answer and explanation fields never leave the server
// on this path.
func (r *Room) broadcastQuestionLocked() {
	if r.Round == nil || r.BroadcastFn == nil {
		return
	}
	r.BroadcastFn(r.playerIDsLocked(), Event{
		Type:     EventRoundPublic,
		Question: r.Round.publicQuestion(),
	})
}

// emitRolesLocked unicasts the current role to every member. Roles are
// re-sent to everyone rather than just the pair that changed: a former
// honest player demoted to plain player has to learn that too.
func (r *Room) emitRolesLocked() {
	if r.Round == nil || r.BroadcastToPlayerFn == nil {
		return
	}
	for _, id := range r.order {
		r.BroadcastToPlayerFn(id, r.roleEventLocked(id))
	}
}

// roleEventLocked builds the private role payload for one member.
func (r *Room) roleEventLocked(playerID uuid.UUID) Event {
	role := RoleOf(r.Round, playerID)
	ev := Event{Type: EventRoundRole, Role: role}
	if role == RoleHonest {
		explanation := r.Round.Question.Explanation
		ev.Explanation = &explanation
	}
	return ev
}

// SyncFor returns the current snapshot plus, when a round is active, the
// public question and the caller's private role. The caller re-pushes the
// returned events to the syncing connection only; this recovers state for
// a client that refreshed without losing membership.
func (r *Room) SyncFor(playerID uuid.UUID) (RoomState, []Event) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	state := *r.stateLocked()
	if r.Round == nil {
		return state, nil
	}
	return state, []Event{
		{Type: EventRoundPublic, Question: r.Round.publicQuestion()},
		r.roleEventLocked(playerID),
	}
}
