package coordinator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/bracket"
	"github.com/pongarena/backend/internal/protocol"
	"github.com/pongarena/backend/internal/store"
)

// tournamentRun wraps a bracket with the coordinator-side runtime: the
// creator's identity, per-match readiness, and the timer generation. Gen is
// bumped on every transition that invalidates armed timers; a TimerFired
// carrying an older generation finds stale state and does nothing.
type tournamentRun struct {
	T          *bracket.Tournament
	CreatorID  string
	CreatorExt string
	Ready      map[string]map[string]bool // matchID -> roster player id
	Gen        int
	CreatedAt  time.Time
}

// rosterPlayerFor matches a live connection to its roster entry, by the conn
// id it joined with or by stable external id after a reconnect.
func (run *tournamentRun) rosterPlayerFor(p *Player) *bracket.Player {
	for i := range run.T.Players {
		rp := &run.T.Players[i]
		if rp.ID == p.ConnID {
			return rp
		}
		if p.ExternalID != "" && rp.ExternalID == p.ExternalID {
			return rp
		}
	}
	return nil
}

// findTournamentFor locates the tournament whose roster contains the player.
// An explicit code takes precedence so a player in several tournaments can
// disambiguate; otherwise the roster scan finds the one they belong to.
func (c *Coordinator) findTournamentFor(p *Player, code string) *tournamentRun {
	if code != "" {
		if run, ok := c.tournaments[strings.ToUpper(code)]; ok && run.rosterPlayerFor(p) != nil {
			return run
		}
		return nil
	}
	for _, run := range c.tournaments {
		if run.rosterPlayerFor(p) != nil {
			return run
		}
	}
	return nil
}

// reachable reports whether a roster player has a live connection. AI
// entrants are never reachable over the wire.
func (c *Coordinator) reachable(pl *bracket.Player) bool {
	if pl.IsAI {
		return false
	}
	if _, ok := c.conns[pl.ID]; ok {
		return true
	}
	if pl.ExternalID != "" {
		if _, ok := c.byExternal[pl.ExternalID]; ok {
			return true
		}
	}
	return false
}

func (c *Coordinator) reachableCount(run *tournamentRun) int {
	n := 0
	for i := range run.T.Players {
		if c.reachable(&run.T.Players[i]) {
			n++
		}
	}
	return n
}

// sendToRosterPlayer resolves a roster entry to its current connection.
func (c *Coordinator) sendToRosterPlayer(pl *bracket.Player, v any) {
	if pl.IsAI {
		return
	}
	if _, ok := c.conns[pl.ID]; ok {
		c.send(pl.ID, v)
		return
	}
	if pl.ExternalID != "" {
		c.toExternalID(pl.ExternalID, v)
	}
}

// broadcastTournament fans an event out to every reachable roster member.
func (c *Coordinator) broadcastTournament(run *tournamentRun, evt protocol.TournamentEvent) {
	for i := range run.T.Players {
		c.sendToRosterPlayer(&run.T.Players[i], evt)
	}
}

// touchTournamentsFor re-broadcasts the snapshot of every tournament the
// player belongs to. Called when their presence changes either way.
func (c *Coordinator) touchTournamentsFor(p *Player) {
	for _, run := range c.tournaments {
		if run.rosterPlayerFor(p) == nil {
			continue
		}
		if c.reachableCount(run) == 0 {
			continue // never show a tournament that has gone fully dark
		}
		c.broadcastTournament(run, protocol.TournamentEvent{
			Type:       protocol.OutTournamentUpdated,
			Tournament: run.T,
		})
	}
}

func (c *Coordinator) handleCreateTournament(p *Player, env protocol.Inbound) {
	size := env.Size
	if size == 0 {
		size = 4
	}
	code, err := c.newTournamentCode()
	if err != nil {
		c.log.Error("generate tournament code", zap.Error(err))
		c.sendTournamentError(p.ConnID, protocol.ReasonInternal)
		return
	}
	tn, err := bracket.New(newID(12), code, env.Name, size)
	if err != nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonInvalidSize)
		return
	}
	_ = tn.AddPlayer(bracket.Player{ID: p.ConnID, ExternalID: p.ExternalID, Name: p.Name})

	run := &tournamentRun{
		T:          tn,
		CreatorID:  p.ConnID,
		CreatorExt: p.ExternalID,
		Ready:      make(map[string]map[string]bool),
		CreatedAt:  c.now(),
	}
	c.tournaments[code] = run
	c.byTournID[tn.ID] = run

	c.log.Info("tournament created", zap.String("code", code), zap.Int("size", size))
	// Announced to every connection, not just the creator, so lobby clients
	// can discover the open roster without being handed the code.
	c.toAll(protocol.TournamentEvent{
		Type:       protocol.OutTournamentCreated,
		Tournament: tn,
	})
}

func (c *Coordinator) handleJoinTournament(p *Player, env protocol.Inbound) {
	run := c.tournaments[strings.ToUpper(env.Code)]
	if run == nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotFound)
		return
	}
	err := run.T.AddPlayer(bracket.Player{ID: p.ConnID, ExternalID: p.ExternalID, Name: p.Name})
	switch {
	case errors.Is(err, bracket.ErrAlreadyStarted):
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentAlreadyStarted)
		return
	case errors.Is(err, bracket.ErrFull):
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentFull)
		return
	case errors.Is(err, bracket.ErrAlreadyJoined):
		c.sendTournamentError(p.ConnID, protocol.ReasonAlreadyJoined)
		return
	case err != nil:
		c.sendTournamentError(p.ConnID, protocol.ReasonInternal)
		return
	}
	c.broadcastTournament(run, protocol.TournamentEvent{
		Type:       protocol.OutTournamentUpdated,
		Tournament: run.T,
	})
}

// handleStartTournament freezes the roster, seeds it, and opens round 1.
// Only the creator may start. A short roster is padded with AI entrants when
// asked, rejected otherwise.
func (c *Coordinator) handleStartTournament(p *Player, env protocol.Inbound) {
	run := c.tournaments[strings.ToUpper(env.Code)]
	if run == nil {
		run = c.findTournamentFor(p, "")
	}
	if run == nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotFound)
		return
	}
	creator := p.ConnID == run.CreatorID ||
		(p.ExternalID != "" && p.ExternalID == run.CreatorExt)
	if !creator {
		c.sendTournamentError(p.ConnID, protocol.ReasonNotCreator)
		return
	}
	if run.T.Status != bracket.StatusWaiting {
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentAlreadyStarted)
		return
	}
	if !run.T.Full() {
		if !env.FillWithAI {
			c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotFull)
			return
		}
		for i := 1; !run.T.Full(); i++ {
			_ = run.T.AddPlayer(bracket.Player{
				ID:   "ai-" + newID(6),
				Name: fmt.Sprintf("CPU %d", i),
				IsAI: true,
			})
		}
	}

	if err := run.T.Start(c.rng); err != nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotFull)
		return
	}
	run.Gen++

	c.log.Info("tournament started",
		zap.String("code", run.T.Code), zap.Int("players", len(run.T.Players)))
	c.broadcastTournament(run, protocol.TournamentEvent{
		Type:       protocol.OutTournamentStarted,
		Tournament: run.T,
	})
	c.openRound(run)
}

// openRound promotes the current round's matches to ready, announces the
// round, and arms the ready-timeout fallback per match.
func (c *Coordinator) openRound(run *tournamentRun) {
	opened := run.T.OpenRound()
	c.broadcastTournament(run, protocol.TournamentEvent{
		Type:       protocol.OutRoundStarted,
		Tournament: run.T,
		Round:      run.T.CurrentRound,
	})
	for _, m := range opened {
		c.armTimer(run, timerMatchReady, m.ID, c.opts.ReadyTimeout)
	}
}

// armTimer schedules a TimerFired message carrying the current generation.
// Timers are cancelled implicitly: any state transition that invalidates
// them bumps Gen, and the fire becomes a no-op.
func (c *Coordinator) armTimer(run *tournamentRun, kind timerKind, matchID string, d time.Duration) {
	if d <= 0 {
		return
	}
	msg := TimerFired{
		TournamentID: run.T.ID,
		Gen:          run.Gen,
		Kind:         kind,
		MatchID:      matchID,
	}
	time.AfterFunc(d, func() {
		select {
		case c.inbox <- msg:
		case <-c.ctx.Done():
		}
	})
}

func (c *Coordinator) handleTimer(msg TimerFired) {
	run := c.byTournID[msg.TournamentID]
	if run == nil || run.Gen != msg.Gen {
		return // stale fire, the world moved on
	}
	switch msg.Kind {
	case timerRoundStart:
		if run.T.Status == bracket.StatusActive {
			c.openRound(run)
		}
	case timerMatchReady:
		c.forfeitUnready(run, msg.MatchID)
	}
}

// forfeitUnready resolves a match whose players never established a game
// within the ready timeout. The bracket must not block: whichever side
// showed up wins, and with neither side present player1 advances by default.
func (c *Coordinator) forfeitUnready(run *tournamentRun, matchID string) {
	m := run.T.Match(matchID)
	if m == nil || m.Status != bracket.MatchReady {
		return
	}
	ready := run.Ready[matchID]
	pick := func(pl *bracket.Player) bool {
		return pl != nil && (ready[pl.ID] || (!pl.IsAI && c.reachable(pl)))
	}
	winner := m.Player1
	switch {
	case pick(m.Player1) && !pick(m.Player2):
		winner = m.Player1
	case pick(m.Player2) && !pick(m.Player1):
		winner = m.Player2
	}
	if winner == nil {
		return
	}
	c.log.Info("match forfeited on ready timeout",
		zap.String("tournament", run.T.Code), zap.String("match", matchID),
		zap.String("winner", winner.ID))
	res, err := run.T.CompleteMatch(matchID, winner.ID, nil)
	if err != nil {
		c.log.Error("forfeit completion failed", zap.Error(err))
		return
	}
	c.recordMatch(run, res.Match)
	c.afterCompletion(run, res)
}

// handleMarkPlayerReady records a player's readiness; when both sides of a
// match are ready (AI entrants count as always ready) the match goes active
// and the pair is told to play.
func (c *Coordinator) handleMarkPlayerReady(p *Player, env protocol.Inbound) {
	run := c.findTournamentFor(p, env.Code)
	if run == nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotFound)
		return
	}
	m := run.T.Match(env.MatchID)
	if m == nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonMatchNotFound)
		return
	}
	if m.Status != bracket.MatchReady {
		// Active or completed already: retried readiness is harmless.
		return
	}
	rp := run.rosterPlayerFor(p)
	inMatch := rp != nil &&
		((m.Player1 != nil && m.Player1.ID == rp.ID) ||
			(m.Player2 != nil && m.Player2.ID == rp.ID))
	if !inMatch {
		c.sendTournamentError(p.ConnID, protocol.ReasonMatchNotFound)
		return
	}
	if run.Ready[m.ID] == nil {
		run.Ready[m.ID] = make(map[string]bool)
	}
	run.Ready[m.ID][rp.ID] = true

	isReady := func(pl *bracket.Player) bool {
		return pl != nil && (pl.IsAI || run.Ready[m.ID][pl.ID])
	}
	if !isReady(m.Player1) || !isReady(m.Player2) {
		return
	}
	if err := run.T.ActivateMatch(m.ID); err != nil {
		return
	}
	evt := protocol.TournamentEvent{Type: protocol.OutMatchReady, Match: m}
	c.sendToRosterPlayer(m.Player1, evt)
	c.sendToRosterPlayer(m.Player2, evt)
}

func (c *Coordinator) handleCompleteMatch(p *Player, env protocol.Inbound) {
	run := c.findTournamentFor(p, env.Code)
	if run == nil {
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotFound)
		return
	}
	res, err := run.T.CompleteMatch(env.MatchID, env.WinnerID, env.Scores)
	switch {
	case errors.Is(err, bracket.ErrNotStarted):
		c.sendTournamentError(p.ConnID, protocol.ReasonTournamentNotStarted)
		return
	case errors.Is(err, bracket.ErrMatchNotFound):
		c.sendTournamentError(p.ConnID, protocol.ReasonMatchNotFound)
		return
	case errors.Is(err, bracket.ErrMatchNotPlayable):
		c.sendTournamentError(p.ConnID, protocol.ReasonMatchNotActive)
		return
	case errors.Is(err, bracket.ErrInvalidWinner):
		c.sendTournamentError(p.ConnID, protocol.ReasonInvalidWinner)
		return
	case err != nil:
		c.sendTournamentError(p.ConnID, protocol.ReasonInternal)
		return
	}
	if res.AlreadyCompleted {
		// Re-acknowledge the recorded result; no further advancement.
		c.send(p.ConnID, protocol.TournamentEvent{
			Type:       protocol.OutTournamentUpdated,
			Tournament: run.T,
			Match:      res.Match,
		})
		return
	}
	c.recordMatch(run, res.Match)
	c.afterCompletion(run, res)
}

// afterCompletion turns a bracket Result into broadcasts, persistence, and
// followup timers.
func (c *Coordinator) afterCompletion(run *tournamentRun, res bracket.Result) {
	if !res.RoundCompleted {
		c.broadcastTournament(run, protocol.TournamentEvent{
			Type:       protocol.OutTournamentUpdated,
			Tournament: run.T,
			Match:      res.Match,
		})
		return
	}

	run.Gen++
	for i := range res.Eliminated {
		pl := res.Eliminated[i]
		c.sendToRosterPlayer(&pl, protocol.TournamentEvent{
			Type:   protocol.OutPlayerEliminated,
			Player: &pl,
		})
	}

	if res.Finished {
		winner := run.T.Winner()
		c.log.Info("tournament completed",
			zap.String("code", run.T.Code), zap.String("winner", run.T.WinnerID))
		c.broadcastTournament(run, protocol.TournamentEvent{
			Type:       protocol.OutTournamentCompleted,
			Tournament: run.T,
			Winner:     winner,
		})
		c.recordTournament(run)
		return
	}

	c.broadcastTournament(run, protocol.TournamentEvent{
		Type:       protocol.OutRoundCompleted,
		Tournament: run.T,
		Round:      run.T.CurrentRound - 1,
	})
	if c.opts.RoundStartDelay > 0 {
		c.armTimer(run, timerRoundStart, "", c.opts.RoundStartDelay)
	} else {
		c.openRound(run)
	}
}

// recordMatch writes the completed match summary to the persistence sink.
// Fire and forget, after the in-memory transition committed.
func (c *Coordinator) recordMatch(run *tournamentRun, m *bracket.Match) {
	rec := store.MatchRecord{
		TournamentID: run.T.ID,
		MatchID:      m.ID,
		Round:        m.Round,
		MatchIndex:   m.Index,
		WinnerID:     m.WinnerID,
		CompletedAt:  c.now(),
	}
	if m.Player1 != nil {
		rec.Player1 = m.Player1.ID
	}
	if m.Player2 != nil {
		rec.Player2 = m.Player2.ID
	}
	if len(m.Scores) >= 2 {
		rec.Score1, rec.Score2 = m.Scores[0], m.Scores[1]
	}
	c.rec.RecordMatch(rec)
}

func (c *Coordinator) recordTournament(run *tournamentRun) {
	rec := store.TournamentRecord{
		TournamentID: run.T.ID,
		Code:         run.T.Code,
		Name:         run.T.Name,
		Size:         run.T.Size,
		PlayerCount:  len(run.T.Players),
		WinnerID:     run.T.WinnerID,
		CompletedAt:  c.now(),
	}
	if w := run.T.Winner(); w != nil {
		rec.WinnerName = w.Name
	}
	c.rec.RecordTournament(rec)
}
