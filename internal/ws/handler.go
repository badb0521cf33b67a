package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/coordinator"
	"github.com/pongarena/backend/internal/protocol"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 90 * time.Second
	pingInterval = 30 * time.Second
	outboxSize   = 32
)

// Handler upgrades the connection, registers it with the coordinator, and
// shuttles envelopes both ways. One writer goroutine drains the outbox; the
// request goroutine is the reader. Oversized frames fail the read rather
// than being truncated.
func Handler(c *coordinator.Coordinator, log *zap.Logger, maxMessageBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(maxMessageBytes)

		connID := newConnID()
		out := make(chan []byte, outboxSize)

		c.Inbox() <- coordinator.Connect{ConnID: connID, Outbox: out}
		defer func() { c.Inbox() <- coordinator.Disconnect{ConnID: connID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			// Pings keep quiet-but-live connections (a spectator between
			// rounds) inside the read deadline; only dead peers time out.
			ping := time.NewTicker(pingInterval)
			defer ping.Stop()
			for {
				select {
				case payload, ok := <-out:
					if !ok {
						// The coordinator closed the outbox (eviction or
						// shutdown); take the transport down with it so the
						// reader unblocks.
						conn.Close(websocket.StatusGoingAway, "evicted")
						return
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-ping.C:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Ping(ctx)
					cancel()
				case <-writeCtx.Done():
					return
				}
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var env protocol.Inbound
			if err := json.Unmarshal(data, &env); err != nil {
				reply, _ := json.Marshal(protocol.Error(protocol.ReasonBadJSON))
				_ = conn.Write(r.Context(), websocket.MessageText, reply)
				continue
			}
			if env.Type == "" {
				reply, _ := json.Marshal(protocol.Error(protocol.ReasonUnknownType))
				_ = conn.Write(r.Context(), websocket.MessageText, reply)
				continue
			}

			c.Inbox() <- coordinator.FromClient{ConnID: connID, Env: env}
		}
	}
}

func newConnID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "conn-fallback"
	}
	return hex.EncodeToString(b)
}
