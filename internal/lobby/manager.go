package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/store"
)

var (
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrGameInProgress = errors.New("game already in progress")
	ErrLobbyFull      = errors.New("lobby is full")
	ErrNoActiveLobby  = errors.New("no active lobby")
	ErrNotHost        = errors.New("only the host may do that")
	ErrNotAllReady    = errors.New("not all players are ready")
)

const (
	DefaultMaxPlayers  = 8
	DefaultTotalRounds = 5
	// DefaultStaleAfter is how long an abandoned lobby survives before any
	// client may reap it.
	DefaultStaleAfter = 2 * time.Hour
)

// Manager is one client's view of the lobby system. Its player ID is an
// opaque per-session token; a reload gets a fresh one.
type Manager struct {
	store      store.Store
	log        *zap.Logger
	playerID   string
	staleAfter time.Duration

	mu        sync.Mutex
	current   *Lobby
	listeners []func()
}

func NewManager(st store.Store, log *zap.Logger) *Manager {
	return &Manager{
		store:      st,
		log:        log,
		playerID:   "player_" + uuid.NewString(),
		staleAfter: DefaultStaleAfter,
	}
}

func (m *Manager) PlayerID() string { return m.playerID }

// Current returns the last lobby snapshot this manager saw, or nil.
func (m *Manager) Current() *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CreateLobby generates a collision-free code and writes a fresh lobby with
// the caller as its sole, ready host.
func (m *Manager) CreateLobby(ctx context.Context, hostName string) (string, error) {
	// Advisory cleanup; a failure here never blocks creation.
	if _, err := ReapStale(ctx, m.store, m.staleAfter, m.log); err != nil {
		m.log.Warn("could not reap stale lobbies", zap.Error(err))
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return "", fmt.Errorf("generate lobby code: %w", err)
		}
		existing, err := m.store.Get(ctx, Path(c))
		if err != nil {
			return "", fmt.Errorf("check lobby code: %w", err)
		}
		if existing == nil {
			code = c
			break
		}
		m.log.Debug("lobby code collision, regenerating", zap.String("code", c))
	}

	now := time.Now().UnixMilli()
	lb := Lobby{
		ID:       code,
		HostID:   m.playerID,
		HostName: hostName,
		Players: map[string]Player{
			m.playerID: {
				ID:       m.playerID,
				Name:     hostName,
				IsHost:   true,
				IsReady:  true,
				JoinedAt: now,
			},
		},
		GameSettings: Settings{
			TotalRounds:    DefaultTotalRounds,
			TournamentName: hostName + "'s Tournament",
		},
		Status:     StatusWaiting,
		CreatedAt:  now,
		MaxPlayers: DefaultMaxPlayers,
	}
	if err := m.store.Set(ctx, Path(code), lb); err != nil {
		return "", fmt.Errorf("create lobby: %w", err)
	}

	m.setCurrent(&lb)
	m.log.Info("lobby created", zap.String("code", code))
	return code, nil
}

// JoinLobby adds the caller to a waiting lobby. Rejoining a lobby this
// identity is already a member of succeeds without mutation, which is what
// makes reconnect-after-reload work.
func (m *Manager) JoinLobby(ctx context.Context, code, name string) (*Lobby, error) {
	lb, err := m.fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrLobbyNotFound
	}
	if _, member := lb.Players[m.playerID]; member {
		m.setCurrent(lb)
		return lb, nil
	}
	if lb.Status != StatusWaiting {
		return nil, ErrGameInProgress
	}
	if len(lb.Players) >= lb.MaxPlayers {
		return nil, ErrLobbyFull
	}

	p := Player{
		ID:       m.playerID,
		Name:     name,
		JoinedAt: time.Now().UnixMilli(),
	}
	if err := m.store.Set(ctx, Path(code)+"/players/"+m.playerID, p); err != nil {
		return nil, fmt.Errorf("join lobby: %w", err)
	}

	lb.Players[m.playerID] = p
	m.setCurrent(lb)
	m.log.Info("joined lobby", zap.String("code", code))
	return lb, nil
}

// LeaveLobby removes the caller. A departing host, or the departure of the
// last player, tears the whole lobby down. Local subscriptions are always
// cleared, even when the store writes fail.
func (m *Manager) LeaveLobby(ctx context.Context) error {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	for _, cancel := range listeners {
		cancel()
	}
	if cur == nil {
		return nil
	}

	path := Path(cur.ID)
	if err := m.store.Remove(ctx, path+"/players/"+m.playerID); err != nil {
		return fmt.Errorf("leave lobby: %w", err)
	}

	if cur.HostID == m.playerID {
		if err := m.store.Remove(ctx, path); err != nil {
			return fmt.Errorf("delete lobby: %w", err)
		}
		m.log.Info("host left, lobby deleted", zap.String("code", cur.ID))
		return nil
	}

	remaining, err := m.store.Get(ctx, path+"/players")
	if err != nil {
		return fmt.Errorf("leave lobby: %w", err)
	}
	if players, ok := remaining.(map[string]any); !ok || len(players) == 0 {
		if err := m.store.Remove(ctx, path); err != nil {
			return fmt.Errorf("delete lobby: %w", err)
		}
		m.log.Info("last player left, lobby deleted", zap.String("code", cur.ID))
	}
	return nil
}

// SetPlayerReady flips the caller's own readiness flag only.
func (m *Manager) SetPlayerReady(ctx context.Context, ready bool) error {
	cur := m.Current()
	if cur == nil {
		return ErrNoActiveLobby
	}
	path := Path(cur.ID) + "/players/" + m.playerID + "/isReady"
	if err := m.store.Set(ctx, path, ready); err != nil {
		return fmt.Errorf("set ready: %w", err)
	}
	return nil
}

// UpdateSettings rewrites the lobby's game settings. Host only.
func (m *Manager) UpdateSettings(ctx context.Context, s Settings) error {
	cur := m.Current()
	if cur == nil {
		return ErrNoActiveLobby
	}
	if cur.HostID != m.playerID {
		return ErrNotHost
	}
	err := m.store.Update(ctx, Path(cur.ID)+"/gameSettings", map[string]any{
		"totalRounds":    s.TotalRounds,
		"playlistUrl":    s.PlaylistURL,
		"tournamentName": s.TournamentName,
	})
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// StartGame flips the lobby to playing and seeds the shared game state. Host
// only; every non-host player must be ready (the host is implicitly ready).
func (m *Manager) StartGame(ctx context.Context) error {
	cur := m.Current()
	if cur == nil {
		return ErrNoActiveLobby
	}
	if cur.HostID != m.playerID {
		return ErrNotHost
	}

	lb, err := m.fetch(ctx, cur.ID)
	if err != nil {
		return err
	}
	if lb == nil {
		return ErrLobbyNotFound
	}
	if lb.Status != StatusWaiting {
		return ErrGameInProgress
	}

	ids := make([]string, 0, len(lb.Players))
	for id, p := range lb.Players {
		if !p.IsHost && !p.IsReady {
			return ErrNotAllReady
		}
		ids = append(ids, id)
	}

	gs := NewGameState(ids)
	err = m.store.Update(ctx, Path(lb.ID), map[string]any{
		"status":    StatusPlaying,
		"gameState": gs,
	})
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	m.log.Info("game started",
		zap.String("code", lb.ID), zap.Int("players", len(ids)))
	return nil
}

// Listen subscribes to a lobby. fn receives nil once the lobby is gone;
// subscription failures surface the same way rather than crashing callers.
func (m *Manager) Listen(code string, fn func(*Lobby)) (func(), error) {
	cancel, err := m.store.Subscribe(Path(code), func(v any) {
		if v == nil {
			fn(nil)
			return
		}
		var lb Lobby
		if err := store.Decode(v, &lb); err != nil {
			m.log.Warn("bad lobby snapshot", zap.String("code", code), zap.Error(err))
			fn(nil)
			return
		}
		m.setCurrent(&lb)
		fn(&lb)
	})
	if err != nil {
		return nil, fmt.Errorf("listen to lobby: %w", err)
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, cancel)
	m.mu.Unlock()
	return cancel, nil
}

func (m *Manager) setCurrent(lb *Lobby) {
	m.mu.Lock()
	m.current = lb
	m.mu.Unlock()
}

func (m *Manager) fetch(ctx context.Context, code string) (*Lobby, error) {
	v, err := m.store.Get(ctx, Path(code))
	if err != nil {
		return nil, fmt.Errorf("read lobby: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	var lb Lobby
	if err := store.Decode(v, &lb); err != nil {
		return nil, fmt.Errorf("read lobby: %w", err)
	}
	return &lb, nil
}

// ReapStale removes every lobby older than window. Any client may run this;
// concurrent deletion of the same lobby is a harmless no-op.
func ReapStale(ctx context.Context, st store.Store, window time.Duration, log *zap.Logger) (int, error) {
	v, err := st.Get(ctx, "lobbies")
	if err != nil {
		return 0, fmt.Errorf("scan lobbies: %w", err)
	}
	all, ok := v.(map[string]any)
	if !ok {
		return 0, nil
	}

	cutoff := time.Now().Add(-window).UnixMilli()
	reaped := 0
	for code, raw := range all {
		var lb Lobby
		if err := store.Decode(raw, &lb); err != nil {
			continue
		}
		if lb.CreatedAt >= cutoff {
			continue
		}
		if err := st.Remove(ctx, Path(code)); err == nil {
			reaped++
		}
	}
	if reaped > 0 {
		log.Info("reaped stale lobbies", zap.Int("count", reaped))
	}
	return reaped, nil
}
