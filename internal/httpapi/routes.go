package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/songdle/songdle-backend/internal/ws"
)

func SetupRoutes(a *API) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/lobbies", a.CreateCode)
	r.Get("/lobbies/{code}", a.GetLobby)
	r.Get("/lobbies/{code}/qr", a.JoinQR)
	r.Get("/catalog", a.Catalog)
	r.Get("/playlist", a.PlaylistTracks)
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(a.store, a.log))
	return r
}
