package coordinator

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/protocol"
)

// sendRaw delivers a marshalled payload to one connection. Closed or unknown
// connections are silently skipped. A full outbox means the client stopped
// draining; it gets dropped, the websocket writer notices the close.
func (c *Coordinator) sendRaw(connID string, payload []byte) {
	ch, ok := c.conns[connID]
	if !ok {
		return
	}
	select {
	case ch <- payload:
	default:
		c.log.Warn("dropping slow client", zap.String("conn", connID))
		close(ch)
		delete(c.conns, connID)
	}
}

func (c *Coordinator) send(connID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound", zap.Error(err))
		return
	}
	c.sendRaw(connID, payload)
}

// toAll fans a payload out to every open connection, best effort.
func (c *Coordinator) toAll(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound", zap.Error(err))
		return
	}
	for id := range c.conns {
		c.sendRaw(id, payload)
	}
}

// toRoom fans out to a room's members, optionally excluding one.
func (c *Coordinator) toRoom(room *Room, v any, exceptID string) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound", zap.Error(err))
		return
	}
	for _, id := range room.Members {
		if id == exceptID {
			continue
		}
		c.sendRaw(id, payload)
	}
}

// toExternalID addresses a player by stable identity rather than connection.
func (c *Coordinator) toExternalID(ext string, v any) {
	if id, ok := c.byExternal[ext]; ok {
		c.send(id, v)
	}
}

func (c *Coordinator) sendError(connID, reason string) {
	c.send(connID, protocol.Error(reason))
}

func (c *Coordinator) sendTournamentError(connID, reason string) {
	c.send(connID, protocol.TournamentError(reason))
}
