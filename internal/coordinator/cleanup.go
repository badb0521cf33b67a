package coordinator

import (
	"time"

	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/bracket"
)

// runCleanup posts a Sweep into the inbox on a fixed interval so that
// eviction, like every other mutation, runs on the coordinator goroutine.
func (c *Coordinator) runCleanup(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-t.C:
			select {
			case c.inbox <- Sweep{}:
			case <-c.ctx.Done():
				return
			}
		}
	}
}

// sweep evicts state no reachable player cares about. Rooms are destroyed
// the moment they empty, so the room pass only catches entries whose members
// all lost their connections without a leave ever arriving.
func (c *Coordinator) sweep() {
	now := c.now()

	for code, room := range c.rooms {
		live := 0
		for _, id := range room.Members {
			if _, ok := c.conns[id]; ok {
				live++
			}
		}
		if live > 0 {
			room.EmptySince = time.Time{}
			continue
		}
		if room.EmptySince.IsZero() {
			room.EmptySince = now
			continue
		}
		if now.Sub(room.EmptySince) >= c.opts.MaxIdleRoomAge {
			delete(c.rooms, code)
			c.log.Info("swept idle room", zap.String("room", code))
		}
	}

	for code, run := range c.tournaments {
		var why string
		switch {
		case run.T.Status == bracket.StatusCompleted:
			why = "completed"
		case run.T.Status == bracket.StatusWaiting &&
			now.Sub(run.CreatedAt) >= c.opts.StaleWaitingAge:
			why = "stale waiting"
		case c.reachableCount(run) == 0:
			why = "no reachable players"
		default:
			continue
		}
		run.Gen++
		delete(c.tournaments, code)
		delete(c.byTournID, run.T.ID)
		c.log.Info("swept tournament",
			zap.String("code", code), zap.String("reason", why))
	}
}
