package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pongarena/backend/internal/coordinator"
	"github.com/pongarena/backend/internal/ws"
)

func SetupRoutes(c *coordinator.Coordinator, log *zap.Logger, maxMessageBytes int64) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz(c))
	r.Get("/ws", ws.Handler(c, log, maxMessageBytes))
	return r
}
