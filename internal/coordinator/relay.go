package coordinator

import (
	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/protocol"
)

// handleGameState accepts authoritative physics snapshots from the room's
// host only. Snapshots from any other member are dropped without a reply.
func (c *Coordinator) handleGameState(p *Player, env protocol.Inbound) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	if room.HostID != p.ConnID || env.State == nil {
		return
	}
	room.State = env.State
	c.toRoom(room, protocol.GameStateEvent{
		Type:  protocol.OutGameState,
		Code:  room.Code,
		State: env.State,
	}, p.ConnID)
}

// handlePlayerInput forwards an input to the host for physics integration
// and echoes it to every other member for prediction smoothing. Both sends
// happen unconditionally per input; no batching.
func (c *Coordinator) handlePlayerInput(p *Player, env protocol.Inbound) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	evt := protocol.PlayerInputEvent{
		Type:  protocol.OutPlayerInput,
		Code:  room.Code,
		From:  p.ConnID,
		Input: env.Input,
	}
	if room.HostID != p.ConnID {
		c.send(room.HostID, evt)
	}
	for _, id := range room.Members {
		if id == p.ConnID || id == room.HostID {
			continue
		}
		c.send(id, evt)
	}
}

func (c *Coordinator) handlePauseToggle(p *Player) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	room.Paused = !room.Paused
	c.toRoom(room, protocol.GameControlEvent{
		Type:   protocol.OutGamePaused,
		Code:   room.Code,
		From:   p.ConnID,
		Paused: room.Paused,
	}, "")
}

// handleGameExit broadcasts the departure as a mode transition, then runs
// the normal leave path (host promotion, destroy on empty).
func (c *Coordinator) handleGameExit(p *Player) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	c.toRoom(room, protocol.GameControlEvent{
		Type: protocol.OutGameExit,
		Code: room.Code,
		From: p.ConnID,
	}, "")
	c.removeFromRoom(room.Code, p)
}

// handleGameEnd finalizes a game. Host authority applies the same as for
// state updates.
func (c *Coordinator) handleGameEnd(p *Player, env protocol.Inbound) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	if room.HostID != p.ConnID {
		return
	}
	scores := env.Scores
	if scores == nil && room.State != nil {
		scores = room.State.Scores[:]
	}
	c.log.Info("game ended", zap.String("room", room.Code))
	c.toRoom(room, protocol.GameControlEvent{
		Type:   protocol.OutGameEnded,
		Code:   room.Code,
		From:   p.ConnID,
		Scores: scores,
	}, "")
}

func (c *Coordinator) handleChat(p *Player, env protocol.Inbound) {
	room := c.rooms[p.RoomCode]
	if room == nil {
		c.sendError(p.ConnID, protocol.ReasonNotInRoom)
		return
	}
	if env.Text == "" {
		return
	}
	c.toRoom(room, protocol.ChatEvent{
		Type: protocol.OutChatMessage,
		Code: room.Code,
		From: p.Name,
		Text: env.Text,
	}, "")
}
