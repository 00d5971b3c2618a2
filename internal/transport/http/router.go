package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rosterboard/internal/platform/config"
	"rosterboard/internal/platform/middleware"
)

// NewRouter wires all endpoints behind the shared middleware chain. Reads
// are open; creating a run goes through the API key guard.
func NewRouter(h *Handler, logger *slog.Logger, server config.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r, middleware.RequireAPIKey(server.APIKeyHash, logger))

	return r
}
