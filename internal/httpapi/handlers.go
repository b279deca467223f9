package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/lobby"
	"github.com/songdle/songdle-backend/internal/playlist"
	"github.com/songdle/songdle-backend/internal/store"
)

// API holds the REST side of the server. Lobby mutation happens over the
// websocket store; these endpoints cover the bits a plain HTTP client needs:
// reserving a code, peeking at a lobby, rendering a join QR, and resolving
// playlists server-side so the API key never ships to clients.
type API struct {
	store   store.Store
	tracks  playlist.Source
	log     *zap.Logger
	baseURL string
}

// New builds the API. tracks may be nil when no playlist source is
// configured; the playlist endpoint then reports itself unavailable.
func New(st store.Store, tracks playlist.Source, baseURL string, log *zap.Logger) *API {
	return &API{store: st, tracks: tracks, log: log, baseURL: baseURL}
}

// CreateCode reserves nothing; it just finds a code no live lobby is using.
func (a *API) CreateCode(w http.ResponseWriter, r *http.Request) {
	var code string
	for {
		c, err := lobby.GenerateCode()
		if err != nil {
			http.Error(w, "failed to generate code", http.StatusInternalServerError)
			return
		}
		existing, err := a.store.Get(r.Context(), lobby.Path(c))
		if err != nil {
			http.Error(w, "store unavailable", http.StatusInternalServerError)
			return
		}
		if existing == nil {
			code = c
			break
		}
		a.log.Debug("collision on code, regenerating", zap.String("code", c))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(struct {
		Code string `json:"code"`
	}{Code: code})
}

// GetLobby returns the current lobby snapshot.
func (a *API) GetLobby(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	v, err := a.store.Get(r.Context(), lobby.Path(code))
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	if v == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	var lb lobby.Lobby
	if err := store.Decode(v, &lb); err != nil {
		http.Error(w, "corrupt lobby", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(lb)
}

// JoinQR renders a QR code pointing at the join page for a lobby.
func (a *API) JoinQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	v, err := a.store.Get(r.Context(), lobby.Path(code))
	if err != nil {
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	if v == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(a.baseURL+"/join?code="+code, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to render qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// Catalog lists the built-in playlists.
func (a *API) Catalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(playlist.DefaultCatalog)
}

// PlaylistTracks resolves a playlist URL (or raw ID) into its track list.
func (a *API) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	if a.tracks == nil {
		http.Error(w, "playlist source not configured", http.StatusServiceUnavailable)
		return
	}
	ref := r.URL.Query().Get("url")
	if ref == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	tracks, err := a.tracks.Tracks(r.Context(), ref)
	if err != nil {
		a.log.Warn("playlist resolution failed", zap.String("ref", ref), zap.Error(err))
		http.Error(w, "could not resolve playlist", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tracks)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
