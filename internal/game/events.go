// internal/game/events.go
package game

// EventType tags every payload pushed to clients.
type EventType string

const (
	// EventRoomState carries a full room snapshot, broadcast to all
	// members on any membership or host change.
	EventRoomState EventType = "room:state"
	// EventRoundPublic carries the public view of the active question,
	// broadcast on round start and question skip. It never includes the
	// answer or the explanation.
	EventRoundPublic EventType = "round:public"
	// EventRoundRole carries a player's private role, unicast to exactly
	// one connection. Only the honest player's copy has an explanation.
	EventRoundRole EventType = "round:role"
)

// Role is a player's hidden assignment within a round.
type Role string

const (
	RoleHonest  Role = "honest"
	RoleThinker Role = "thinker"
	RolePlayer  Role = "player"
)

// PlayerInfo is the public view of one room member.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomState is the full public snapshot of a room.
type RoomState struct {
	RoomID  string       `json:"roomId"`
	HostID  string       `json:"hostId"`
	Players []PlayerInfo `json:"players"`
}

// PublicQuestion is the broadcast view of the active question.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Choices []string `json:"choices"`
}

// Event is a single payload pushed to one or more clients. Which optional
// fields are set depends on Type.
type Event struct {
	Type EventType `json:"type"`

	// room:state
	State *RoomState `json:"state,omitempty"`

	// round:public
	Question *PublicQuestion `json:"question,omitempty"`

	// round:role; Explanation is set only for the honest player
	Role        Role    `json:"role,omitempty"`
	Explanation *string `json:"explanation,omitempty"`
}
