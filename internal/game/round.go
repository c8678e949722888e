// internal/game/round.go
package game

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/jwhuang/honest-party/internal/question"
)

// minRoundPlayers is the smallest room a round can run in: one honest, one
// thinker, and at least one plain player.
const minRoundPlayers = 3

// Round is one question plus one role assignment. It exists only between a
// host's round start and either the next start or room teardown; skips and
// rerolls mutate it in place.
//
// HonestID and ThinkerID reference players as of the last role draw. They
// are not repaired when a referenced player leaves the room; only an
// explicit reroll reassigns them. Hosts are expected to reroll after a
// mid-round departure.
type Round struct {
	Question  question.Question
	HonestID  uuid.UUID
	ThinkerID uuid.UUID

	// UsedQuestionIDs records every question played this round, in play
	// order, so skips never repeat one.
	UsedQuestionIDs []string
}

// publicQuestion strips the round's question down to what every player may
// see.
func (rnd *Round) publicQuestion() *PublicQuestion {
	return &PublicQuestion{
		ID:      rnd.Question.ID,
		Title:   rnd.Question.Prompt,
		Choices: append([]string(nil), rnd.Question.Choices[:]...),
	}
}

// RoleOf derives a player's current role from the round. Every emit and
// sync path goes through this single helper so the mapping can never
// diverge between them.
func RoleOf(rnd *Round, playerID uuid.UUID) Role {
	switch {
	case rnd == nil:
		return RolePlayer
	case playerID == rnd.HonestID:
		return RoleHonest
	case playerID == rnd.ThinkerID:
		return RoleThinker
	default:
		return RolePlayer
	}
}

// pickOne draws one id uniformly.
func pickOne(ids []uuid.UUID) uuid.UUID {
	return ids[rand.Intn(len(ids))]
}

// pickDifferent draws one id uniformly from ids minus excluded.
func pickDifferent(ids []uuid.UUID, excluded uuid.UUID) uuid.UUID {
	pool := make([]uuid.UUID, 0, len(ids)-1)
	for _, id := range ids {
		if id != excluded {
			pool = append(pool, id)
		}
	}
	return pool[rand.Intn(len(pool))]
}

// StartRound draws a fresh question from the full bank and a fresh role
// assignment from the current players, replacing any round already in
// progress. Each player is then privately told their role and the public
// question is broadcast to the whole room.
func (r *Room) StartRound(actorID uuid.UUID, qs []question.Question) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if actorID != r.HostID {
		return ErrNotHost
	}
	if len(r.order) < minRoundPlayers {
		return ErrNotEnoughPlayers
	}

	q, err := question.PickRandom(qs)
	if err != nil {
		return err
	}

	honest := pickOne(r.order)
	thinker := pickDifferent(r.order, honest)

	r.Round = &Round{
		Question:        q,
		HonestID:        honest,
		ThinkerID:       thinker,
		UsedQuestionIDs: []string{q.ID},
	}

	r.emitRolesLocked()
	r.broadcastQuestionLocked()
	return nil
}

// SkipQuestion replaces only the active question with one not yet played
// this round. Roles stay put, but role payloads are re-sent so the honest
// player receives the new question's explanation.
func (r *Room) SkipQuestion(actorID uuid.UUID, qs []question.Question) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if actorID != r.HostID {
		return ErrNotHost
	}
	if r.Round == nil {
		return ErrNoActiveRound
	}

	q, ok := question.PickRandomExcluding(qs, r.Round.UsedQuestionIDs)
	if !ok {
		return ErrQuestionsExhausted
	}

	r.Round.Question = q
	r.Round.UsedQuestionIDs = append(r.Round.UsedQuestionIDs, q.ID)

	r.broadcastQuestionLocked()
	r.emitRolesLocked()
	return nil
}

// RerollRoles redraws honest and thinker from the CURRENT player set, so a
// player who joined mid-round becomes eligible. The question and its used
// history are untouched.
func (r *Room) RerollRoles(actorID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if actorID != r.HostID {
		return ErrNotHost
	}
	if r.Round == nil {
		return ErrNoActiveRound
	}
	if len(r.order) < minRoundPlayers {
		return ErrNotEnoughPlayers
	}

	honest := pickOne(r.order)
	r.Round.HonestID = honest
	r.Round.ThinkerID = pickDifferent(r.order, honest)

	r.emitRolesLocked()
	return nil
}
