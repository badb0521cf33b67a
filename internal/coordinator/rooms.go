package coordinator

import (
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/protocol"
)

// Room is an ephemeral live-game session. Members holds connection ids in
// insertion order; index 0 after a host departure is the next-oldest member.
type Room struct {
	Code       string
	HostID     string
	Mode       string
	MaxPlayers int
	Members    []string
	Started    bool
	Paused     bool
	State      *protocol.GameState
	EmptySince time.Time
}

func maxPlayersFor(mode string) int {
	switch mode {
	case "2p":
		return 2
	case "4p":
		return 4
	default:
		return 0
	}
}

func (c *Coordinator) roomSnapshot(room *Room) protocol.RoomSnapshot {
	snap := protocol.RoomSnapshot{
		Code:       room.Code,
		HostID:     room.HostID,
		Mode:       room.Mode,
		MaxPlayers: room.MaxPlayers,
		Started:    room.Started,
		Paused:     room.Paused,
		Members:    make([]protocol.PlayerInfo, 0, len(room.Members)),
	}
	for _, id := range room.Members {
		info := protocol.PlayerInfo{ID: id, IsHost: id == room.HostID}
		if p := c.players[id]; p != nil {
			info.Name = p.Name
			info.ExternalID = p.ExternalID
		}
		snap.Members = append(snap.Members, info)
	}
	return snap
}

func (c *Coordinator) memberInfo(room *Room, p *Player) *protocol.PlayerInfo {
	return &protocol.PlayerInfo{
		ID:         p.ConnID,
		Name:       p.Name,
		ExternalID: p.ExternalID,
		IsHost:     room.HostID == p.ConnID,
	}
}

func (c *Coordinator) handleCreateRoom(p *Player, env protocol.Inbound) {
	if p.RoomCode != "" {
		c.sendError(p.ConnID, protocol.ReasonAlreadyInRoom)
		return
	}
	maxPlayers := maxPlayersFor(env.Mode)
	if maxPlayers == 0 {
		c.sendError(p.ConnID, protocol.ReasonInvalidMode)
		return
	}
	code, err := c.newRoomCode()
	if err != nil {
		c.log.Error("generate room code", zap.Error(err))
		c.sendError(p.ConnID, protocol.ReasonInternal)
		return
	}

	room := &Room{
		Code:       code,
		HostID:     p.ConnID,
		Mode:       env.Mode,
		MaxPlayers: maxPlayers,
		Members:    []string{p.ConnID},
	}
	c.rooms[code] = room
	p.RoomCode = code

	c.log.Info("room created", zap.String("room", code), zap.String("host", p.ConnID))
	c.send(p.ConnID, protocol.RoomEvent{
		Type: protocol.OutRoomCreated,
		Room: c.roomSnapshot(room),
	})
}

func (c *Coordinator) handleJoinRoom(p *Player, env protocol.Inbound) {
	if p.RoomCode != "" {
		c.sendError(p.ConnID, protocol.ReasonAlreadyInRoom)
		return
	}
	room := c.rooms[strings.ToUpper(env.Code)]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonRoomNotFound)
		return
	}
	if room.Started {
		c.sendError(p.ConnID, protocol.ReasonAlreadyStarted)
		return
	}
	if len(room.Members) >= room.MaxPlayers {
		c.sendError(p.ConnID, protocol.ReasonRoomFull)
		return
	}

	room.Members = append(room.Members, p.ConnID)
	p.RoomCode = room.Code

	snap := c.roomSnapshot(room)
	c.send(p.ConnID, protocol.RoomEvent{Type: protocol.OutRoomJoined, Room: snap})
	c.toRoom(room, protocol.RoomEvent{
		Type:   protocol.OutPlayerJoined,
		Room:   snap,
		Player: c.memberInfo(room, p),
	}, p.ConnID)

	if len(room.Members) == room.MaxPlayers {
		c.toRoom(room, protocol.RoomEvent{Type: protocol.OutGameReady, Room: snap}, "")
	}
}

func (c *Coordinator) handleLeaveRoom(p *Player) {
	if p.RoomCode == "" {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	c.removeFromRoom(p.RoomCode, p)
}

// removeFromRoom drops a member, promotes the next-oldest remaining member
// when the host left, and destroys the room the moment it empties. Rooms are
// cheap to recreate; there is no grace period.
func (c *Coordinator) removeFromRoom(code string, p *Player) {
	p.RoomCode = ""
	room := c.rooms[code]
	if room == nil {
		return
	}
	if i := slices.Index(room.Members, p.ConnID); i >= 0 {
		room.Members = slices.Delete(room.Members, i, i+1)
	}

	if len(room.Members) == 0 {
		delete(c.rooms, code)
		c.log.Info("room destroyed", zap.String("room", code))
		return
	}
	hostChanged := false
	if room.HostID == p.ConnID {
		room.HostID = room.Members[0]
		hostChanged = true
		c.log.Info("host reassigned",
			zap.String("room", code), zap.String("host", room.HostID))
	}

	c.toRoom(room, protocol.RoomEvent{
		Type: protocol.OutPlayerLeft,
		Room: c.roomSnapshot(room),
		Player: &protocol.PlayerInfo{
			ID:   p.ConnID,
			Name: p.Name,
		},
	}, "")
	if hostChanged {
		c.toRoom(room, protocol.RoomEvent{
			Type: protocol.OutRoomUpdated,
			Room: c.roomSnapshot(room),
		}, "")
	}
}

func (c *Coordinator) handleStartGame(p *Player) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	if room.HostID != p.ConnID {
		c.sendError(p.ConnID, protocol.ReasonNotHost)
		return
	}
	if room.Started {
		c.sendError(p.ConnID, protocol.ReasonAlreadyStarted)
		return
	}
	if len(room.Members) < 2 {
		c.sendError(p.ConnID, protocol.ReasonNotEnoughPlayers)
		return
	}

	room.Started = true
	room.State = c.newGameState(len(room.Members))

	c.log.Info("game started", zap.String("room", room.Code),
		zap.Int("players", len(room.Members)))
	c.toRoom(room, protocol.GameStartedEvent{
		Type:  protocol.OutGameStarted,
		Room:  c.roomSnapshot(room),
		State: room.State,
	}, "")
}

// newGameState is the fixed kickoff position: ball centered, serving toward
// the host's side, paddles centered.
func (c *Coordinator) newGameState(players int) *protocol.GameState {
	paddles := make([]float64, players)
	for i := range paddles {
		paddles[i] = 0.5
	}
	return &protocol.GameState{
		Ball:      protocol.Vec{X: 0.5, Y: 0.5},
		BallVel:   protocol.Vec{X: -0.35, Y: 0.2},
		Paddles:   paddles,
		UpdatedAt: c.now().UnixMilli(),
	}
}
