package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/store"
	"github.com/DoyleJ11/flychess-backend/internal/ws"
)

func SetupRoutes(lb *lobby.Lobby, rec store.Recorder, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Read-only admin and spectator routes
	r.Get("/healthz", Healthz)
	r.Get("/state", State(lb))
	r.Get("/results", Results(rec))
	r.Get("/ws", ws.Handler(lb, log))
	return r
}
