package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/backend/internal/protocol"
)

// Sweeps run through the inbox, so tests post Sweep directly instead of
// waiting on the ticker.

func TestSweepEvictsCompletedTournament(t *testing.T) {
	c := newTestCoordinator(t, Options{StaleWaitingAge: time.Hour})
	clients, code := fourPlayerTournament(t, c)

	tn := inspectTournament(t, c, code)
	for _, m := range tn.MatchesInRound(1) {
		clients["c1"].send(c, protocol.Inbound{
			Type: protocol.InCompleteMatch, MatchID: m.ID, WinnerID: m.Player1.ID,
		})
	}
	drainTo(t, clients["c1"], protocol.OutRoundStarted)
	tn = inspectTournament(t, c, code)
	final := tn.MatchesInRound(2)[0]
	clients["c1"].send(c, protocol.Inbound{
		Type: protocol.InCompleteMatch, MatchID: final.ID, WinnerID: final.Player1.ID,
	})
	drainTo(t, clients["c1"], protocol.OutTournamentCompleted)

	c.Inbox() <- Sweep{}
	assert.Nil(t, inspectTournament(t, c, code))
	assert.Equal(t, 0, stats(t, c).Tournaments)
}

func TestSweepEvictsStaleWaitingTournament(t *testing.T) {
	c := newTestCoordinator(t, Options{StaleWaitingAge: time.Nanosecond})
	creator := connect(c, "c1")
	register(t, c, creator, "alice", "")
	creator.send(c, protocol.Inbound{Type: protocol.InCreateTournament, Size: 4})
	created := decodeTournamentEvent(t, expectType(t, creator, protocol.OutTournamentCreated))

	time.Sleep(5 * time.Millisecond)
	c.Inbox() <- Sweep{}
	assert.Nil(t, inspectTournament(t, c, created.Tournament.Code))
}

// A tournament whose every player went dark is evicted regardless of status.
func TestSweepEvictsUnreachableTournament(t *testing.T) {
	c := newTestCoordinator(t, Options{StaleWaitingAge: time.Hour})
	_, code := fourPlayerTournament(t, c)

	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		c.Inbox() <- Disconnect{ConnID: id}
	}
	c.Inbox() <- Sweep{}
	assert.Nil(t, inspectTournament(t, c, code))
}

func TestSweepKeepsReachableTournament(t *testing.T) {
	c := newTestCoordinator(t, Options{StaleWaitingAge: time.Hour})
	_, code := fourPlayerTournament(t, c)

	for _, id := range []string{"c2", "c3", "c4"} {
		c.Inbox() <- Disconnect{ConnID: id}
	}
	c.Inbox() <- Sweep{}
	require.NotNil(t, inspectTournament(t, c, code))
}

// Rooms normally die the moment they empty; the sweep catches memberships
// leaked by connections that vanished without a disconnect, such as dropped
// slow clients.
func TestSweepCollectsRoomWithNoLiveConnections(t *testing.T) {
	c := newTestCoordinator(t, Options{MaxIdleRoomAge: 0})

	host := connect(c, "c1")
	register(t, c, host, "alice", "")
	host.send(c, protocol.Inbound{Type: protocol.InCreateRoom, Mode: "2p"})
	created := decodeRoomEvent(t, expectType(t, host, protocol.OutRoomCreated))
	code := created.Room.Code

	// A guest with an unbuffered, never-drained outbox: the first broadcast
	// drops it from the connection table while its membership stays behind.
	zombie := &testClient{id: "c2", out: make(chan []byte)}
	c.Inbox() <- Connect{ConnID: "c2", Outbox: zombie.out}
	zombie.send(c, protocol.Inbound{Type: protocol.InRegisterPlayer, DisplayName: "bob"})
	zombie.send(c, protocol.Inbound{Type: protocol.InJoinRoom, Code: code})
	expectType(t, host, protocol.OutPlayerJoined)
	expectType(t, host, protocol.OutGameReady)

	// Host leaves; only the zombie membership remains.
	host.send(c, protocol.Inbound{Type: protocol.InLeaveRoom})
	require.NotNil(t, inspectRoom(t, c, code))

	c.Inbox() <- Sweep{} // marks the room idle
	c.Inbox() <- Sweep{} // collects it
	assert.Nil(t, inspectRoom(t, c, code))
}
