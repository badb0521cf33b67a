package bracket

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidSize = errors.New("invalid tournament size")
var ErrAlreadyStarted = errors.New("tournament already started")
var ErrNotStarted = errors.New("tournament not started")
var ErrFull = errors.New("tournament roster is full")
var ErrAlreadyJoined = errors.New("player already on roster")
var ErrTooFewPlayers = errors.New("at least two players required")
var ErrMatchNotFound = errors.New("match not found")
var ErrMatchNotPlayable = errors.New("match is not in a playable state")
var ErrInvalidWinner = errors.New("winner is not a player of this match")

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchReady     MatchStatus = "ready"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

// Player is a roster entry. ID is the coordinator's stable per-player id;
// ExternalID survives reconnects.
type Player struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId,omitempty"`
	Name       string `json:"name"`
	IsAI       bool   `json:"isAI,omitempty"`
}

// Match is one bracket slot pair. Index encodes bracket position within the
// round: the winner feeds match Index/2 of the next round, into player1 when
// Index is even and player2 when odd.
type Match struct {
	ID       string      `json:"id"`
	Round    int         `json:"round"`
	Index    int         `json:"matchIndex"`
	Player1  *Player     `json:"player1,omitempty"`
	Player2  *Player     `json:"player2,omitempty"`
	Status   MatchStatus `json:"status"`
	WinnerID string      `json:"winnerId,omitempty"`
	Scores   []int       `json:"scores,omitempty"`
}

// Winner returns the winning player, or nil while undecided.
func (m *Match) Winner() *Player {
	if m.WinnerID == "" {
		return nil
	}
	if m.Player1 != nil && m.Player1.ID == m.WinnerID {
		return m.Player1
	}
	if m.Player2 != nil && m.Player2.ID == m.WinnerID {
		return m.Player2
	}
	return nil
}

// Loser returns the eliminated player, or nil for byes and undecided matches.
func (m *Match) Loser() *Player {
	if m.WinnerID == "" {
		return nil
	}
	if m.Player1 != nil && m.Player1.ID != m.WinnerID {
		return m.Player1
	}
	if m.Player2 != nil && m.Player2.ID != m.WinnerID {
		return m.Player2
	}
	return nil
}

// Tournament is a single-elimination bracket. All mutation goes through its
// methods; the zero value is not usable, construct with New.
type Tournament struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	Name         string   `json:"name,omitempty"`
	Size         int      `json:"size"`
	Status       Status   `json:"status"`
	Players      []Player `json:"players"`
	Matches      []*Match `json:"matches"`
	Rounds       int      `json:"rounds"`
	CurrentRound int      `json:"currentRound"`
	WinnerID     string   `json:"winnerId,omitempty"`
}

func New(id, code, name string, size int) (*Tournament, error) {
	switch size {
	case 4, 8, 16:
	default:
		return nil, ErrInvalidSize
	}
	return &Tournament{
		ID:     id,
		Code:   code,
		Name:   name,
		Size:   size,
		Status: StatusWaiting,
	}, nil
}

// AddPlayer appends to the roster. Rosters are append-only and frozen once
// the tournament starts.
func (t *Tournament) AddPlayer(p Player) error {
	if t.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if len(t.Players) >= t.Size {
		return ErrFull
	}
	for _, q := range t.Players {
		if q.ID == p.ID || (p.ExternalID != "" && q.ExternalID == p.ExternalID) {
			return ErrAlreadyJoined
		}
	}
	t.Players = append(t.Players, p)
	return nil
}

// Full reports whether the roster reached the bracket size.
func (t *Tournament) Full() bool { return len(t.Players) >= t.Size }

// PlayerByID finds a roster entry.
func (t *Tournament) PlayerByID(id string) *Player {
	for i := range t.Players {
		if t.Players[i].ID == id {
			return &t.Players[i]
		}
	}
	return nil
}

// Start seeds the roster with one Fisher-Yates shuffle and builds the full
// bracket up front: round 1 holds Size/2 matches seeded players[2i] vs
// players[2i+1], every later round's matches exist with empty slots. Seeding
// is never re-randomized after start. Short rosters leave empty round-1
// slots, which resolve as byes.
func (t *Tournament) Start(rng *rand.Rand) error {
	if t.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if len(t.Players) < 2 {
		return ErrTooFewPlayers
	}

	rng.Shuffle(len(t.Players), func(i, j int) {
		t.Players[i], t.Players[j] = t.Players[j], t.Players[i]
	})

	t.Rounds = 0
	for n := t.Size; n > 1; n >>= 1 {
		t.Rounds++
	}

	t.Matches = t.Matches[:0]
	for r := 1; r <= t.Rounds; r++ {
		count := t.Size >> r
		for i := 0; i < count; i++ {
			m := &Match{
				ID:     fmt.Sprintf("r%dm%d", r, i),
				Round:  r,
				Index:  i,
				Status: MatchPending,
			}
			if r == 1 {
				if 2*i < len(t.Players) {
					m.Player1 = &t.Players[2*i]
				}
				if 2*i+1 < len(t.Players) {
					m.Player2 = &t.Players[2*i+1]
				}
			}
			t.Matches = append(t.Matches, m)
		}
	}

	t.Status = StatusActive
	t.CurrentRound = 1
	t.settle()
	return nil
}

// Match finds a bracket match by id.
func (t *Tournament) Match(id string) *Match {
	for _, m := range t.Matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// MatchesInRound returns the round's matches in Index order.
func (t *Tournament) MatchesInRound(round int) []*Match {
	var out []*Match
	for _, m := range t.Matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// OpenRound promotes the current round's playable matches from pending to
// ready and returns them. Matches already past pending are left alone.
func (t *Tournament) OpenRound() []*Match {
	var opened []*Match
	for _, m := range t.MatchesInRound(t.CurrentRound) {
		if m.Status == MatchPending && m.Player1 != nil && m.Player2 != nil {
			m.Status = MatchReady
			opened = append(opened, m)
		}
	}
	return opened
}

// ActivateMatch marks a ready match as in play.
func (t *Tournament) ActivateMatch(id string) error {
	m := t.Match(id)
	if m == nil {
		return ErrMatchNotFound
	}
	if m.Status != MatchReady {
		return ErrMatchNotPlayable
	}
	m.Status = MatchActive
	return nil
}

// Result describes what a CompleteMatch call changed.
type Result struct {
	Match            *Match
	AlreadyCompleted bool
	RoundCompleted   bool
	Eliminated       []Player
	Finished         bool
}

// CompleteMatch records a match outcome and runs round-barrier advancement.
// Completing an already-completed match is a no-op that re-acknowledges the
// prior result. A winner id that is neither assigned player is rejected with
// the match unmodified.
func (t *Tournament) CompleteMatch(matchID, winnerID string, scores []int) (Result, error) {
	if t.Status == StatusWaiting {
		return Result{}, ErrNotStarted
	}
	m := t.Match(matchID)
	if m == nil {
		return Result{}, ErrMatchNotFound
	}
	if m.Status == MatchCompleted {
		return Result{Match: m, AlreadyCompleted: true}, nil
	}
	if m.Status == MatchPending {
		return Result{}, ErrMatchNotPlayable
	}
	valid := (m.Player1 != nil && m.Player1.ID == winnerID) ||
		(m.Player2 != nil && m.Player2.ID == winnerID)
	if !valid {
		return Result{}, ErrInvalidWinner
	}

	m.WinnerID = winnerID
	m.Scores = append([]int(nil), scores...)
	m.Status = MatchCompleted

	eliminated, closed := t.settle()
	return Result{
		Match:          m,
		RoundCompleted: closed > 0,
		Eliminated:     eliminated,
		Finished:       t.Status == StatusCompleted,
	}, nil
}

// settle resolves byes in the current round and, whenever every match of the
// round is completed, fires the barrier: winners propagate to the next round
// in Index order with both slots of each next-round match assigned together,
// or the tournament completes if the round was the final one. Cascading byes
// can close several rounds in one call.
func (t *Tournament) settle() (eliminated []Player, closed int) {
	for t.Status == StatusActive {
		t.resolveByes(t.CurrentRound)

		cur := t.MatchesInRound(t.CurrentRound)
		done := true
		for _, m := range cur {
			if m.Status != MatchCompleted {
				done = false
				break
			}
		}
		if !done {
			return eliminated, closed
		}
		closed++

		for _, m := range cur {
			if l := m.Loser(); l != nil {
				eliminated = append(eliminated, *l)
			}
		}

		if t.CurrentRound == t.Rounds {
			t.Status = StatusCompleted
			t.WinnerID = cur[0].WinnerID
			return eliminated, closed
		}

		next := t.MatchesInRound(t.CurrentRound + 1)
		for i := 0; i < len(cur); i += 2 {
			nm := next[i/2]
			nm.Player1 = cur[i].Winner()
			nm.Player2 = cur[i+1].Winner()
		}
		t.CurrentRound++
	}
	return eliminated, closed
}

// resolveByes completes every undecided match of the round that has fewer
// than two occupants: a sole occupant wins without play, an empty match
// yields no winner. Byes obey the same barrier as played matches.
func (t *Tournament) resolveByes(round int) {
	for _, m := range t.MatchesInRound(round) {
		if m.Status == MatchCompleted || m.Status == MatchActive {
			continue
		}
		switch {
		case m.Player1 != nil && m.Player2 == nil:
			m.WinnerID = m.Player1.ID
			m.Status = MatchCompleted
		case m.Player1 == nil && m.Player2 != nil:
			m.WinnerID = m.Player2.ID
			m.Status = MatchCompleted
		case m.Player1 == nil && m.Player2 == nil:
			m.Status = MatchCompleted
		}
	}
}

// Winner returns the tournament winner once completed.
func (t *Tournament) Winner() *Player {
	if t.Status != StatusCompleted || t.WinnerID == "" {
		return nil
	}
	return t.PlayerByID(t.WinnerID)
}
