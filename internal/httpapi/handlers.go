package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pongarena/backend/internal/coordinator"
)

// Healthz reports liveness plus the coordinator's connected-player, room,
// and tournament counts.
func Healthz(c *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan coordinator.Stats, 1)
		c.Inbox() <- coordinator.GetStats{Reply: reply}

		var stats coordinator.Stats
		select {
		case stats = <-reply:
		case <-time.After(2 * time.Second):
			http.Error(w, "coordinator unresponsive", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Status string `json:"status"`
			coordinator.Stats
		}{Status: "ok", Stats: stats})
	}
}
