package protocol

import (
	"encoding/json"

	"github.com/pongarena/backend/internal/bracket"
)

type ErrorMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func Error(reason string) ErrorMsg {
	return ErrorMsg{Type: OutError, Reason: reason}
}

func TournamentError(reason string) ErrorMsg {
	return ErrorMsg{Type: OutTournamentError, Reason: reason}
}

type Registered struct {
	Type   string     `json:"type"`
	Player PlayerInfo `json:"player"`
}

// RoomEvent carries the room's full membership snapshot; Player names the
// member the event is about, when there is one.
type RoomEvent struct {
	Type   string       `json:"type"`
	Room   RoomSnapshot `json:"room"`
	Player *PlayerInfo  `json:"player,omitempty"`
}

type GameStartedEvent struct {
	Type  string       `json:"type"`
	Room  RoomSnapshot `json:"room"`
	State *GameState   `json:"state"`
}

type GameStateEvent struct {
	Type  string     `json:"type"`
	Code  string     `json:"code"`
	State *GameState `json:"state"`
}

type PlayerInputEvent struct {
	Type  string          `json:"type"`
	Code  string          `json:"code"`
	From  string          `json:"from"`
	Input json.RawMessage `json:"input"`
}

// GameControlEvent covers the mode transitions that bypass the state path:
// game_paused, game_exit, game_ended.
type GameControlEvent struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	From   string `json:"from"`
	Paused bool   `json:"paused,omitempty"`
	Scores []int  `json:"scores,omitempty"`
}

type ChatEvent struct {
	Type string `json:"type"`
	Code string `json:"code"`
	From string `json:"from"`
	Text string `json:"text"`
}

// TournamentEvent is the envelope for every tournament-side broadcast. The
// snapshot is included whole on mutating events; Match/Round/Player/Winner
// narrow the event down where clients need it.
type TournamentEvent struct {
	Type       string              `json:"type"`
	Tournament *bracket.Tournament `json:"tournament,omitempty"`
	Match      *bracket.Match      `json:"match,omitempty"`
	Round      int                 `json:"round,omitempty"`
	Player     *bracket.Player     `json:"player,omitempty"`
	Winner     *bracket.Player     `json:"winner,omitempty"`
}
