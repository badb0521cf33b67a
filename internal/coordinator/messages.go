package coordinator

import (
	"github.com/pongarena/backend/internal/protocol"
)

// Msg is a coordinator inbox message. Everything that touches coordinator
// state arrives as one of these and is handled to completion on the
// coordinator goroutine.
type Msg interface{ isMsg() }

// Connect announces a new transport connection and hands over its outbox.
type Connect struct {
	ConnID string
	Outbox chan []byte
}

// Disconnect tears down a connection: room departure, tournament presence
// re-evaluation, player removal.
type Disconnect struct{ ConnID string }

// FromClient wraps one decoded inbound envelope.
type FromClient struct {
	ConnID string
	Env    protocol.Inbound
}

// Sweep asks for one cleanup pass. Posted by the cleanup ticker so that
// eviction runs on the coordinator goroutine like everything else.
type Sweep struct{}

type timerKind int

const (
	timerRoundStart timerKind = iota
	timerMatchReady
)

// TimerFired is posted by scheduled tournament timers. Gen is the timer
// generation the tournament had when the timer was armed; a mismatch means
// the world moved on and the fire is a no-op.
type TimerFired struct {
	TournamentID string
	Gen          int
	Kind         timerKind
	MatchID      string
}

// Stats is the liveness view served by the health endpoint.
type Stats struct {
	Players     int `json:"players"`
	Rooms       int `json:"rooms"`
	Tournaments int `json:"tournaments"`
}

type GetStats struct{ Reply chan Stats }

// InspectRoom replies with the room's snapshot, or nil. Test and health use
// only; keeps reads off the coordinator's mutable state.
type InspectRoom struct {
	Code  string
	Reply chan *protocol.RoomSnapshot
}

// InspectTournament replies with the tournament snapshot as JSON, or nil.
type InspectTournament struct {
	Code  string
	Reply chan []byte
}

type Shutdown struct{}

func (Connect) isMsg() {}

func (Disconnect) isMsg() {}

func (FromClient) isMsg() {}

func (Sweep) isMsg() {}

func (TimerFired) isMsg() {}

func (GetStats) isMsg() {}

func (InspectRoom) isMsg() {}

func (InspectTournament) isMsg() {}

func (Shutdown) isMsg() {}
