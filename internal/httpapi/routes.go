package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrumdeck/backend/internal/roomsync"
	"github.com/scrumdeck/backend/internal/ws"
)

func SetupRoutes(a *API, ch *roomsync.Channel, cards []float64, origins []string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", a.CreateRoom)
	r.Get("/rooms/{id}", a.GetRoom)
	r.Post("/rooms/{id}/join", a.JoinRoom)
	r.Get("/ws", ws.Handler(ch, cards, origins, log))
	r.Get("/healthz", Healthz)

	return r
}
