// internal/game/registry.go
package game

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry owns every live Room for the lifetime of the process. It is
// created empty and injected into the handlers; nothing survives restart.
//
// Lock order is always registry before room. Nothing acquires the registry
// lock while holding a room lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom creates a room with the acting connection as host and sole
// player. An empty host name falls back to "Host"; creation itself never
// fails.
func (reg *Registry) CreateRoom(hostID uuid.UUID, hostName string) *Room {
	name := strings.TrimSpace(hostName)
	if name == "" {
		name = "Host"
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	room := &Room{
		ID:      reg.newRoomIDLocked(),
		HostID:  hostID,
		Players: map[uuid.UUID]*Player{hostID: {ID: hostID, Name: name}},
		order:   []uuid.UUID{hostID},
	}
	reg.rooms[room.ID] = room
	return room
}

// newRoomIDLocked generates a 6-digit numeric code and retries until it is
// unique among live rooms. Codes free up for reuse once a room is deleted.
func (reg *Registry) newRoomIDLocked() string {
	for {
		id := strconv.Itoa(100000 + rand.Intn(900000))
		if _, taken := reg.rooms[id]; !taken {
			return id
		}
	}
}

// GetRoom looks up a live room by id.
func (reg *Registry) GetRoom(roomID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// Count reports the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// JoinRoom adds a player to a room. The name must be non-empty after
// trimming and unique within the room under case-insensitive comparison.
// A connection that is already a member stays a single member; the join
// just renames it. Joining never touches the host or the active round.
func (reg *Registry) JoinRoom(roomID string, connID uuid.UUID, name string) (*Room, error) {
	room, ok := reg.GetRoom(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	clean := strings.TrimSpace(name)
	if clean == "" {
		return nil, ErrInvalidName
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.closed {
		// The room emptied out between lookup and lock.
		return nil, ErrRoomNotFound
	}
	folded := strings.ToLower(clean)
	for id, p := range room.Players {
		if id == connID {
			continue // renaming yourself to your own name is fine
		}
		if strings.ToLower(strings.TrimSpace(p.Name)) == folded {
			return nil, ErrNameTaken
		}
	}

	if existing, member := room.Players[connID]; member {
		// Already in the room: a repeat join only renames. The join-order
		// slice must keep exactly one entry per member.
		existing.Name = clean
	} else {
		room.Players[connID] = &Player{ID: connID, Name: clean}
		room.order = append(room.order, connID)
	}
	room.broadcastStateLocked()
	return room, nil
}

// RemovePlayer removes a player from a room. It is an idempotent no-op if
// the room or the player does not exist. When the host leaves, the
// earliest-joined remaining player is promoted. The room is deleted the
// instant it empties; there is no grace period. The active round is left
// untouched, so a departed honest or thinker may remain referenced until
// an explicit reroll.
func (reg *Registry) RemovePlayer(roomID string, connID uuid.UUID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if _, ok := room.Players[connID]; !ok {
		return
	}

	delete(room.Players, connID)
	for i, id := range room.order {
		if id == connID {
			room.order = append(room.order[:i], room.order[i+1:]...)
			break
		}
	}

	if room.HostID == connID {
		if len(room.order) > 0 {
			room.HostID = room.order[0]
		} else {
			room.HostID = uuid.Nil
		}
	}

	if len(room.Players) == 0 {
		room.closed = true
		delete(reg.rooms, roomID)
		return
	}
	room.broadcastStateLocked()
}
