package protocol

import "encoding/json"

// Inbound is the client->server envelope. The Type field selects which of
// the remaining fields are meaningful; unused ones stay zero.
type Inbound struct {
	Type string `json:"type"`

	// register_player
	DisplayName string `json:"displayName,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`

	// create_room / join_room
	Mode string `json:"mode,omitempty"` // "2p" | "4p"
	Code string `json:"code,omitempty"`

	// game_state / player_input / chat_message
	State *GameState      `json:"state,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
	Text  string          `json:"text,omitempty"`

	// tournament commands
	Size       int    `json:"size,omitempty"` // 4 | 8 | 16
	Name       string `json:"name,omitempty"`
	FillWithAI bool   `json:"fillWithAI,omitempty"`
	MatchID    string `json:"matchId,omitempty"`
	WinnerID   string `json:"winnerId,omitempty"`
	Scores     []int  `json:"scores,omitempty"`
}

// Inbound message types.
const (
	InRegisterPlayer   = "register_player"
	InCreateRoom       = "create_room"
	InJoinRoom         = "join_room"
	InLeaveRoom        = "leave_room"
	InStartGame        = "start_game"
	InGameState        = "game_state"
	InPlayerInput      = "player_input"
	InPauseToggle      = "pause_toggle"
	InGameExit         = "game_exit"
	InGameEnd          = "game_end"
	InChatMessage      = "chat_message"
	InCreateTournament = "create_tournament"
	InJoinTournament   = "join_tournament"
	InStartTournament  = "start_tournament"
	InMarkPlayerReady  = "mark_player_ready"
	InCompleteMatch    = "complete_tournament_match"
)

// Vec is a 2D vector in the client's normalized field coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GameState is the host-authoritative physics snapshot relayed to room
// peers. The coordinator never simulates it, only forwards and stores the
// last copy.
type GameState struct {
	Ball      Vec       `json:"ball"`
	BallVel   Vec       `json:"ballVel"`
	Paddles   []float64 `json:"paddles"`
	Scores    [2]int    `json:"scores"`
	UpdatedAt int64     `json:"updatedAt"`
}

// PlayerInfo is a room member as seen by clients.
type PlayerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"externalId,omitempty"`
	IsHost     bool   `json:"isHost"`
}

// RoomSnapshot is the full membership view re-broadcast on every room
// mutation.
type RoomSnapshot struct {
	Code       string       `json:"code"`
	HostID     string       `json:"hostId"`
	Mode       string       `json:"mode"`
	MaxPlayers int          `json:"maxPlayers"`
	Started    bool         `json:"started"`
	Paused     bool         `json:"paused"`
	Members    []PlayerInfo `json:"members"`
}

// Outbound message types.
const (
	OutRegistered          = "registered"
	OutRoomCreated         = "room_created"
	OutRoomJoined          = "room_joined"
	OutRoomUpdated         = "room_updated"
	OutPlayerJoined        = "player_joined"
	OutPlayerLeft          = "player_left"
	OutGameReady           = "game_ready"
	OutGameStarted         = "game_started"
	OutGameState           = "game_state"
	OutGamePaused          = "game_paused"
	OutGameExit            = "game_exit"
	OutGameEnded           = "game_ended"
	OutPlayerInput         = "player_input"
	OutChatMessage         = "chat_message"
	OutTournamentCreated   = "tournament_created"
	OutTournamentUpdated   = "tournament_updated"
	OutTournamentStarted   = "tournament_started"
	OutMatchReady          = "match_ready"
	OutRoundStarted        = "round_started"
	OutPlayerEliminated    = "player_eliminated"
	OutRoundCompleted      = "round_completed"
	OutTournamentCompleted = "tournament_completed"
	OutTournamentError     = "tournament_error"
	OutError               = "error"
)

// Machine-readable reason strings for typed errors.
const (
	ReasonBadJSON                  = "bad_json"
	ReasonInternal                 = "internal_error"
	ReasonUnknownType              = "unknown_type"
	ReasonNotRegistered            = "not_registered"
	ReasonInvalidMode              = "invalid_mode"
	ReasonRoomNotFound             = "room_not_found"
	ReasonRoomFull                 = "room_full"
	ReasonAlreadyStarted           = "already_started"
	ReasonAlreadyInRoom            = "already_in_room"
	ReasonNotInRoom                = "not_in_room"
	ReasonNotHost                  = "not_host"
	ReasonNotEnoughPlayers         = "not_enough_players"
	ReasonInvalidSize              = "invalid_size"
	ReasonTournamentNotFound       = "tournament_not_found"
	ReasonTournamentFull           = "tournament_full"
	ReasonTournamentAlreadyStarted = "tournament_already_started"
	ReasonTournamentNotStarted     = "tournament_not_started"
	ReasonTournamentNotFull        = "tournament_not_full"
	ReasonAlreadyJoined            = "already_joined"
	ReasonNotCreator               = "not_creator"
	ReasonMatchNotFound            = "match_not_found"
	ReasonMatchNotActive           = "match_not_active"
	ReasonInvalidWinner            = "invalid_winner"
)
