package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/backend/internal/protocol"
)

// twoPlayerRoom registers two clients and puts them in one 2p room.
func twoPlayerRoom(t *testing.T, c *Coordinator) (host, guest *testClient, code string) {
	t.Helper()
	host = connect(c, "c1")
	guest = connect(c, "c2")
	register(t, c, host, "alice", "")
	register(t, c, guest, "bob", "")

	host.send(c, protocol.Inbound{Type: protocol.InCreateRoom, Mode: "2p"})
	created := decodeRoomEvent(t, expectType(t, host, protocol.OutRoomCreated))
	code = created.Room.Code
	require.Len(t, code, 6)

	guest.send(c, protocol.Inbound{Type: protocol.InJoinRoom, Code: code})
	expectType(t, guest, protocol.OutRoomJoined)
	expectType(t, host, protocol.OutPlayerJoined)
	expectType(t, host, protocol.OutGameReady)
	expectType(t, guest, protocol.OutGameReady)
	return host, guest, code
}

func TestHostStartsGameWithTwoMembers(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host, guest, _ := twoPlayerRoom(t, c)

	host.send(c, protocol.Inbound{Type: protocol.InStartGame})

	for _, cl := range []*testClient{host, guest} {
		payload := expectType(t, cl, protocol.OutGameStarted)
		var evt protocol.GameStartedEvent
		decodeInto(t, payload, &evt)
		require.Len(t, evt.Room.Members, 2)
		byID := map[string]protocol.PlayerInfo{}
		for _, m := range evt.Room.Members {
			byID[m.ID] = m
		}
		assert.True(t, byID["c1"].IsHost)
		assert.False(t, byID["c2"].IsHost)
		require.NotNil(t, evt.State)
		assert.Equal(t, [2]int{0, 0}, evt.State.Scores)
	}
}

func TestOnlyHostMayStart(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	_, guest, _ := twoPlayerRoom(t, c)

	guest.send(c, protocol.Inbound{Type: protocol.InStartGame})
	payload := expectType(t, guest, protocol.OutError)
	var e protocol.ErrorMsg
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonNotHost, e.Reason)
}

func TestStartNeedsTwoMembers(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host := connect(c, "c1")
	register(t, c, host, "alice", "")
	host.send(c, protocol.Inbound{Type: protocol.InCreateRoom, Mode: "2p"})
	expectType(t, host, protocol.OutRoomCreated)

	host.send(c, protocol.Inbound{Type: protocol.InStartGame})
	payload := expectType(t, host, protocol.OutError)
	var e protocol.ErrorMsg
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonNotEnoughPlayers, e.Reason)
}

func TestJoinRejectedWhenFullOrStarted(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	_, _, code := twoPlayerRoom(t, c)

	// Full.
	late := connect(c, "c3")
	register(t, c, late, "carol", "")
	late.send(c, protocol.Inbound{Type: protocol.InJoinRoom, Code: code})
	payload := expectType(t, late, protocol.OutError)
	var e protocol.ErrorMsg
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonRoomFull, e.Reason)

	// Capacity invariant holds.
	snap := inspectRoom(t, c, code)
	require.NotNil(t, snap)
	assert.LessOrEqual(t, len(snap.Members), snap.MaxPlayers)

	// Started: a 4p room with a free seat still rejects joins after start.
	host2 := connect(c, "c4")
	register(t, c, host2, "dan", "")
	host2.send(c, protocol.Inbound{Type: protocol.InCreateRoom, Mode: "4p"})
	created := decodeRoomEvent(t, expectType(t, host2, protocol.OutRoomCreated))

	late.send(c, protocol.Inbound{Type: protocol.InJoinRoom, Code: created.Room.Code})
	expectType(t, late, protocol.OutRoomJoined)
	expectType(t, host2, protocol.OutPlayerJoined)

	host2.send(c, protocol.Inbound{Type: protocol.InStartGame})
	expectType(t, host2, protocol.OutGameStarted)
	expectType(t, late, protocol.OutGameStarted)

	fifth := connect(c, "c5")
	register(t, c, fifth, "eve", "")
	fifth.send(c, protocol.Inbound{Type: protocol.InJoinRoom, Code: created.Room.Code})
	payload = expectType(t, fifth, protocol.OutError)
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonAlreadyStarted, e.Reason)
}

// Host disconnects while a guest remains: guest inherits the host seat and
// the room survives.
func TestHostDisconnectPromotesGuest(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	_, guest, code := twoPlayerRoom(t, c)

	c.Inbox() <- Disconnect{ConnID: "c1"}

	evt := decodeRoomEvent(t, expectType(t, guest, protocol.OutPlayerLeft))
	assert.Equal(t, "c1", evt.Player.ID)
	assert.Equal(t, "c2", evt.Room.HostID)

	upd := decodeRoomEvent(t, expectType(t, guest, protocol.OutRoomUpdated))
	assert.Equal(t, "c2", upd.Room.HostID)

	snap := inspectRoom(t, c, code)
	require.NotNil(t, snap)
	assert.Equal(t, "c2", snap.HostID)
	require.Len(t, snap.Members, 1)
	assert.True(t, snap.Members[0].IsHost)
}

func TestRoomDestroyedWhenEmpty(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host, guest, code := twoPlayerRoom(t, c)

	host.send(c, protocol.Inbound{Type: protocol.InLeaveRoom})
	expectType(t, guest, protocol.OutPlayerLeft)
	guest.send(c, protocol.Inbound{Type: protocol.InLeaveRoom})

	assert.Nil(t, inspectRoom(t, c, code))
	assert.Equal(t, 0, stats(t, c).Rooms)
}

func TestStartedIsMonotonic(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	host, guest, code := twoPlayerRoom(t, c)

	host.send(c, protocol.Inbound{Type: protocol.InStartGame})
	expectType(t, host, protocol.OutGameStarted)
	expectType(t, guest, protocol.OutGameStarted)

	host.send(c, protocol.Inbound{Type: protocol.InStartGame})
	payload := expectType(t, host, protocol.OutError)
	var e protocol.ErrorMsg
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonAlreadyStarted, e.Reason)

	snap := inspectRoom(t, c, code)
	require.NotNil(t, snap)
	assert.True(t, snap.Started)
}

func TestUnregisteredCommandsRejected(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	cl := connect(c, "c1")

	cl.send(c, protocol.Inbound{Type: protocol.InCreateRoom, Mode: "2p"})
	payload := expectType(t, cl, protocol.OutError)
	var e protocol.ErrorMsg
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonNotRegistered, e.Reason)
}

func TestUnknownTypeKeepsConnectionOpen(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	cl := connect(c, "c1")
	register(t, c, cl, "alice", "")

	cl.send(c, protocol.Inbound{Type: "no_such_command"})
	payload := expectType(t, cl, protocol.OutError)
	var e protocol.ErrorMsg
	decodeInto(t, payload, &e)
	assert.Equal(t, protocol.ReasonUnknownType, e.Reason)

	// The connection still works.
	cl.send(c, protocol.Inbound{Type: protocol.InCreateRoom, Mode: "2p"})
	expectType(t, cl, protocol.OutRoomCreated)
	recvNoEvent(t, cl, 50*time.Millisecond)
}
