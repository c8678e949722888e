// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned by the registry and the round engine. Each one
// maps to a reportable failure for the requesting connection; none of them
// leave state modified.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidName        = errors.New("name is required")
	ErrNameTaken          = errors.New("name already taken")
	ErrNotHost            = errors.New("only the host can do that")
	ErrNotEnoughPlayers   = errors.New("need at least 3 players (honest + thinker + player)")
	ErrNoActiveRound      = errors.New("no active round")
	ErrQuestionsExhausted = errors.New("no unused questions remaining")
)
