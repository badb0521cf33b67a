package coordinator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pongarena/backend/internal/bracket"
	"github.com/pongarena/backend/internal/protocol"
)

func newTestCoordinator(t *testing.T, opts Options) *Coordinator {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, opts)
}

type testClient struct {
	id  string
	out chan []byte
}

func connect(c *Coordinator, id string) *testClient {
	cl := &testClient{id: id, out: make(chan []byte, 64)}
	c.Inbox() <- Connect{ConnID: id, Outbox: cl.out}
	return cl
}

func (cl *testClient) send(c *Coordinator, env protocol.Inbound) {
	c.Inbox() <- FromClient{ConnID: cl.id, Env: env}
}

// recvRaw receives one outbound payload with a timeout so tests never hang.
func recvRaw(t *testing.T, cl *testClient, within time.Duration) []byte {
	t.Helper()
	select {
	case payload, ok := <-cl.out:
		if !ok {
			t.Fatalf("outbox for %s closed unexpectedly", cl.id)
		}
		return payload
	case <-time.After(within):
		t.Fatalf("timed out waiting for event on %s", cl.id)
		return nil
	}
}

func recvNoEvent(t *testing.T, cl *testClient, within time.Duration) {
	t.Helper()
	select {
	case payload, ok := <-cl.out:
		if !ok {
			return
		}
		t.Fatalf("expected no event within %v, got: %s", within, payload)
	case <-time.After(within):
	}
}

// recvClosed asserts the client's outbox got closed (eviction, shutdown).
func recvClosed(t *testing.T, cl *testClient, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-cl.out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox for %s was not closed", cl.id)
		}
	}
}

// expectType receives the next event, asserts its type, and returns the raw
// payload for further decoding.
func expectType(t *testing.T, cl *testClient, wantType string) []byte {
	t.Helper()
	payload := recvRaw(t, cl, time.Second)
	var probe struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(payload, &probe))
	require.Equal(t, wantType, probe.Type, "payload: %s", payload)
	return payload
}

func decodeInto(t *testing.T, payload []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(payload, v))
}

func decodeRoomEvent(t *testing.T, payload []byte) protocol.RoomEvent {
	t.Helper()
	var evt protocol.RoomEvent
	require.NoError(t, json.Unmarshal(payload, &evt))
	return evt
}

func decodeTournamentEvent(t *testing.T, payload []byte) protocol.TournamentEvent {
	t.Helper()
	var evt protocol.TournamentEvent
	require.NoError(t, json.Unmarshal(payload, &evt))
	return evt
}

func register(t *testing.T, c *Coordinator, cl *testClient, name, ext string) {
	t.Helper()
	cl.send(c, protocol.Inbound{Type: protocol.InRegisterPlayer, DisplayName: name, ExternalID: ext})
	expectType(t, cl, protocol.OutRegistered)
}

func inspectRoom(t *testing.T, c *Coordinator, code string) *protocol.RoomSnapshot {
	t.Helper()
	reply := make(chan *protocol.RoomSnapshot, 1)
	c.Inbox() <- InspectRoom{Code: code, Reply: reply}
	select {
	case snap := <-reply:
		return snap
	case <-time.After(time.Second):
		t.Fatalf("timed out inspecting room %s", code)
		return nil
	}
}

func inspectTournament(t *testing.T, c *Coordinator, code string) *bracket.Tournament {
	t.Helper()
	reply := make(chan []byte, 1)
	c.Inbox() <- InspectTournament{Code: code, Reply: reply}
	select {
	case payload := <-reply:
		if payload == nil {
			return nil
		}
		var tn bracket.Tournament
		require.NoError(t, json.Unmarshal(payload, &tn))
		return &tn
	case <-time.After(time.Second):
		t.Fatalf("timed out inspecting tournament %s", code)
		return nil
	}
}

func stats(t *testing.T, c *Coordinator) Stats {
	t.Helper()
	reply := make(chan Stats, 1)
	c.Inbox() <- GetStats{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for stats")
		return Stats{}
	}
}
