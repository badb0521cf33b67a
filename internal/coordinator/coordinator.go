// Package coordinator is the real-time match and tournament coordinator: a
// single goroutine owning the connection table, game rooms, and tournament
// brackets. All state is ephemeral and rebuilt from reconnection traffic.
package coordinator

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/protocol"
	"github.com/pongarena/backend/internal/store"
)

type Options struct {
	Logger          *zap.Logger
	Recorder        store.Recorder
	CleanupInterval time.Duration // <= 0 disables the sweep ticker
	MaxIdleRoomAge  time.Duration
	StaleWaitingAge time.Duration
	ReadyTimeout    time.Duration // <= 0 disables ready-timeout forfeits
	RoundStartDelay time.Duration // <= 0 opens rounds immediately
	Seed            int64         // 0 seeds from the clock
	Now             func() time.Time
}

// Player is a registered connection's identity. Rooms and tournaments hold
// ids only; the conns table resolves an id to its transport outbox.
type Player struct {
	ConnID     string
	Name       string
	ExternalID string
	RoomCode   string
}

type Coordinator struct {
	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	opts   Options
	rec    store.Recorder
	rng    *rand.Rand
	now    func() time.Time

	conns       map[string]chan []byte    // connID -> outbox
	players     map[string]*Player        // connID -> player
	byExternal  map[string]string         // externalID -> connID
	rooms       map[string]*Room          // code -> room
	tournaments map[string]*tournamentRun // code -> run
	byTournID   map[string]*tournamentRun // internal id -> run
}

func New(parent context.Context, opts Options) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Recorder == nil {
		opts.Recorder = store.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c := &Coordinator{
		inbox:       make(chan Msg, 256),
		ctx:         ctx,
		cancel:      cancel,
		log:         opts.Logger,
		opts:        opts,
		rec:         opts.Recorder,
		rng:         rand.New(rand.NewSource(seed)),
		now:         opts.Now,
		conns:       make(map[string]chan []byte),
		players:     make(map[string]*Player),
		byExternal:  make(map[string]string),
		rooms:       make(map[string]*Room),
		tournaments: make(map[string]*tournamentRun),
		byTournID:   make(map[string]*tournamentRun),
	}
	go c.loop()
	if opts.CleanupInterval > 0 {
		go c.runCleanup(opts.CleanupInterval)
	}
	return c
}

// Inbox is where the transport layer and timers post messages.
func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Connect:
				c.conns[msg.ConnID] = msg.Outbox

			case Disconnect:
				c.handleDisconnect(msg.ConnID)

			case FromClient:
				c.handleClient(msg.ConnID, msg.Env)

			case Sweep:
				c.sweep()

			case TimerFired:
				c.handleTimer(msg)

			case GetStats:
				msg.Reply <- Stats{
					Players:     len(c.players),
					Rooms:       len(c.rooms),
					Tournaments: len(c.tournaments),
				}

			case InspectRoom:
				if room := c.rooms[msg.Code]; room != nil {
					snap := c.roomSnapshot(room)
					msg.Reply <- &snap
				} else {
					msg.Reply <- nil
				}

			case InspectTournament:
				if run := c.tournaments[msg.Code]; run != nil {
					payload, _ := json.Marshal(run.T)
					msg.Reply <- payload
				} else {
					msg.Reply <- nil
				}

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Coordinator) shutdown() {
	for id, ch := range c.conns {
		close(ch)
		delete(c.conns, id)
	}
	clear(c.players)
	clear(c.byExternal)
	clear(c.rooms)
	clear(c.tournaments)
	clear(c.byTournID)
	c.cancel()
}

// handleClient routes one inbound envelope. Everything except registration
// requires a registered player.
func (c *Coordinator) handleClient(connID string, env protocol.Inbound) {
	if env.Type == protocol.InRegisterPlayer {
		c.handleRegister(connID, env)
		return
	}
	p := c.players[connID]
	if p == nil {
		c.sendError(connID, protocol.ReasonNotRegistered)
		return
	}

	switch env.Type {
	case protocol.InCreateRoom:
		c.handleCreateRoom(p, env)
	case protocol.InJoinRoom:
		c.handleJoinRoom(p, env)
	case protocol.InLeaveRoom:
		c.handleLeaveRoom(p)
	case protocol.InStartGame:
		c.handleStartGame(p)
	case protocol.InGameState:
		c.handleGameState(p, env)
	case protocol.InPlayerInput:
		c.handlePlayerInput(p, env)
	case protocol.InPauseToggle:
		c.handlePauseToggle(p)
	case protocol.InGameExit:
		c.handleGameExit(p)
	case protocol.InGameEnd:
		c.handleGameEnd(p, env)
	case protocol.InChatMessage:
		c.handleChat(p, env)
	case protocol.InCreateTournament:
		c.handleCreateTournament(p, env)
	case protocol.InJoinTournament:
		c.handleJoinTournament(p, env)
	case protocol.InStartTournament:
		c.handleStartTournament(p, env)
	case protocol.InMarkPlayerReady:
		c.handleMarkPlayerReady(p, env)
	case protocol.InCompleteMatch:
		c.handleCompleteMatch(p, env)
	default:
		c.sendError(connID, protocol.ReasonUnknownType)
	}
}

// handleRegister creates or replaces the player for this connection. A known
// externalId on a different live connection means a silent reconnect: the
// stale mapping is evicted first, last registration wins.
func (c *Coordinator) handleRegister(connID string, env protocol.Inbound) {
	name := strings.TrimSpace(env.DisplayName)
	if name == "" {
		name = "anonymous"
	}
	if ext := env.ExternalID; ext != "" {
		if old, ok := c.byExternal[ext]; ok && old != connID {
			c.log.Info("evicting stale connection for external id",
				zap.String("externalId", ext), zap.String("conn", old))
			c.handleDisconnect(old)
		}
		c.byExternal[ext] = connID
	}
	p := &Player{ConnID: connID, Name: name, ExternalID: env.ExternalID}
	if prev := c.players[connID]; prev != nil {
		p.RoomCode = prev.RoomCode
	}
	c.players[connID] = p

	c.send(connID, protocol.Registered{
		Type: protocol.OutRegistered,
		Player: protocol.PlayerInfo{
			ID:         connID,
			Name:       name,
			ExternalID: env.ExternalID,
		},
	})
	c.touchTournamentsFor(c.players[connID])
}

func (c *Coordinator) handleDisconnect(connID string) {
	if ch, ok := c.conns[connID]; ok {
		close(ch)
		delete(c.conns, connID)
	}
	p := c.players[connID]
	if p == nil {
		return
	}
	delete(c.players, connID)
	if p.ExternalID != "" && c.byExternal[p.ExternalID] == connID {
		delete(c.byExternal, p.ExternalID)
	}
	if p.RoomCode != "" {
		c.removeFromRoom(p.RoomCode, p)
	}
	// Tournament rosters keep the entry: a disconnected tournament player is
	// offline, not withdrawn. Remaining members get a fresh snapshot.
	c.touchTournamentsFor(p)
	c.log.Debug("player disconnected", zap.String("conn", connID))
}
