// Package bridge maps local round and tournament progress onto the shared
// store for multiplayer play. Writes are partitioned to keep the collision
// surface small: only the host touches round-control fields, and each player
// writes nothing outside their own playerGuesses subtree. What remains is
// last-write-wins, best effort by design.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/engine"
	"github.com/songdle/songdle-backend/internal/lobby"
	"github.com/songdle/songdle-backend/internal/playlist"
	"github.com/songdle/songdle-backend/internal/store"
)

var (
	ErrNoGameState       = errors.New("game state not found")
	ErrNoActiveRound     = errors.New("no active round")
	ErrNoTracksAvailable = errors.New("no unused tracks available")
	ErrTournamentOver    = errors.New("all rounds have been played")
)

type Bridge struct {
	store    store.Store
	log      *zap.Logger
	code     string
	playerID string

	mu        sync.Mutex
	listeners []func()
}

func New(st store.Store, code, playerID string, log *zap.Logger) *Bridge {
	return &Bridge{store: st, log: log, code: code, playerID: playerID}
}

func (b *Bridge) lobbyPath() string     { return lobby.Path(b.code) }
func (b *Bridge) gameStatePath() string { return b.lobbyPath() + "/gameState" }
func (b *Bridge) guessPath(playerID string) string {
	return b.gameStatePath() + "/playerGuesses/" + playerID
}

// UpdateGameState writes round-control fields. Host only.
func (b *Bridge) UpdateGameState(ctx context.Context, fields map[string]any) error {
	if _, err := b.requireHost(ctx); err != nil {
		return err
	}
	if err := b.store.Update(ctx, b.gameStatePath(), fields); err != nil {
		return fmt.Errorf("update game state: %w", err)
	}
	return nil
}

// StartNextRound advances the shared round: pick an unused track from tracks,
// reset every player's per-round state (scores carry over), and activate the
// round. Host only.
func (b *Bridge) StartNextRound(ctx context.Context, tracks []playlist.Track) (playlist.Track, error) {
	lb, err := b.requireHost(ctx)
	if err != nil {
		return playlist.Track{}, err
	}
	gs, err := b.gameState(ctx)
	if err != nil {
		return playlist.Track{}, err
	}

	// The seeded state already sits at round 1 with no track; the first
	// advance activates it instead of skipping ahead.
	nextRound := gs.CurrentRound
	if gs.CurrentTrack != nil {
		nextRound++
	}
	if lb.GameSettings.TotalRounds > 0 && nextRound > lb.GameSettings.TotalRounds {
		return playlist.Track{}, ErrTournamentOver
	}

	used := make(map[string]bool, len(gs.UsedTracks))
	for _, id := range gs.UsedTracks {
		used[id] = true
	}
	var candidates []playlist.Track
	for _, t := range tracks {
		if !used[t.ID] {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return playlist.Track{}, ErrNoTracksAvailable
	}
	track := candidates[rand.IntN(len(candidates))]

	fields := map[string]any{
		"currentRound": nextRound,
		"currentTrack": lobby.TrackRef{
			ID:      track.ID,
			Title:   track.Title,
			Artist:  track.Artist,
			VideoID: track.VideoID,
		},
		"currentAttempt":      0,
		"currentClipDuration": engine.ClipDurations[0],
		"isRoundActive":       true,
		"roundStartTime":      time.Now().UnixMilli(),
		"roundEndTime":        0,
		"usedTracks":          append(append([]string{}, gs.UsedTracks...), track.ID),
		"playersReady":        map[string]bool{},
	}
	// Reset per-round guess state for everyone, keeping tournament totals.
	// Players missing from the map (late partial writes) get a fresh default.
	for id := range lb.Players {
		prs := gs.PlayerGuesses[id]
		fields["playerGuesses/"+id] = lobby.PlayerRoundState{
			Attempts:   []lobby.GuessAttempt{},
			TotalScore: prs.TotalScore,
			RoundsWon:  prs.RoundsWon,
		}
	}

	if err := b.store.Update(ctx, b.gameStatePath(), fields); err != nil {
		return playlist.Track{}, fmt.Errorf("start round: %w", err)
	}
	b.log.Info("round advanced",
		zap.String("code", b.code),
		zap.Int("round", nextRound),
		zap.String("trackId", track.ID))
	return track, nil
}

// EndRound deactivates the current round. Host only.
func (b *Bridge) EndRound(ctx context.Context) error {
	return b.UpdateGameState(ctx, map[string]any{
		"isRoundActive": false,
		"roundEndTime":  time.Now().UnixMilli(),
	})
}

// FinishTournament marks the lobby finished. Host only.
func (b *Bridge) FinishTournament(ctx context.Context) error {
	if _, err := b.requireHost(ctx); err != nil {
		return err
	}
	if err := b.store.Set(ctx, b.lobbyPath()+"/status", lobby.StatusFinished); err != nil {
		return fmt.Errorf("finish tournament: %w", err)
	}
	return nil
}

// SubmitGuess evaluates guess against the shared round and writes back only
// the caller's own subtree. A missing subtree is reconciled to a structural
// default first; concurrent writers can legitimately race ahead of a late
// reader and that must not be fatal.
func (b *Bridge) SubmitGuess(ctx context.Context, guess string) (bool, error) {
	return b.submit(ctx, guess, true)
}

// SkipGuess records an empty, incorrect attempt. It can exhaust the round
// but never win it.
func (b *Bridge) SkipGuess(ctx context.Context) error {
	_, err := b.submit(ctx, "", false)
	return err
}

func (b *Bridge) submit(ctx context.Context, guess string, mayWin bool) (bool, error) {
	gs, err := b.gameState(ctx)
	if err != nil {
		return false, err
	}
	if gs.CurrentTrack == nil {
		return false, ErrNoActiveRound
	}
	maxAttempts := gs.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = engine.MaxAttempts
	}

	prs := reconcileRoundState(gs.PlayerGuesses, b.playerID)
	if prs.HasWon || prs.HasLost {
		return false, engine.ErrRoundOver
	}

	correct := false
	if mayWin {
		correct = engine.Matches(playlist.Track{
			Title:  gs.CurrentTrack.Title,
			Artist: gs.CurrentTrack.Artist,
		}, guess)
	}

	prs.Attempts = append(prs.Attempts, lobby.GuessAttempt{
		Guess:     guess,
		IsCorrect: correct,
		Timestamp: time.Now().UnixMilli(),
	})

	switch {
	case correct:
		prs.HasWon = true
		prs.RoundScore = engine.RoundScore(len(prs.Attempts))
		prs.TotalScore += prs.RoundScore
		prs.RoundsWon++
	case len(prs.Attempts) >= maxAttempts:
		prs.HasLost = true
		prs.RoundScore = 0
	}

	if err := b.store.Set(ctx, b.guessPath(b.playerID), prs); err != nil {
		return false, fmt.Errorf("submit guess: %w", err)
	}
	return correct, nil
}

// SetRoundReady flips the caller's own readiness flag for the round.
func (b *Bridge) SetRoundReady(ctx context.Context, ready bool) error {
	path := b.gameStatePath() + "/playersReady/" + b.playerID
	if err := b.store.Set(ctx, path, ready); err != nil {
		return fmt.Errorf("set round ready: %w", err)
	}
	return nil
}

// ListenLobby subscribes to the whole lobby. fn receives nil once the lobby
// is gone.
func (b *Bridge) ListenLobby(fn func(*lobby.Lobby)) (func(), error) {
	cancel, err := b.store.Subscribe(b.lobbyPath(), func(v any) {
		if v == nil {
			fn(nil)
			return
		}
		var lb lobby.Lobby
		if err := store.Decode(v, &lb); err != nil {
			b.log.Warn("bad lobby snapshot", zap.Error(err))
			fn(nil)
			return
		}
		fn(&lb)
	})
	if err != nil {
		return nil, fmt.Errorf("listen to lobby: %w", err)
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, cancel)
	b.mu.Unlock()
	return cancel, nil
}

// ListenGameState subscribes to the shared game state. fn receives nil once
// the state (or the whole lobby) is gone.
func (b *Bridge) ListenGameState(fn func(*lobby.GameState)) (func(), error) {
	cancel, err := b.store.Subscribe(b.gameStatePath(), func(v any) {
		if v == nil {
			fn(nil)
			return
		}
		var gs lobby.GameState
		if err := store.Decode(v, &gs); err != nil {
			b.log.Warn("bad game state snapshot", zap.Error(err))
			fn(nil)
			return
		}
		fn(&gs)
	})
	if err != nil {
		return nil, fmt.Errorf("listen to game state: %w", err)
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, cancel)
	b.mu.Unlock()
	return cancel, nil
}

// Close cancels every listener this bridge registered.
func (b *Bridge) Close() {
	b.mu.Lock()
	listeners := b.listeners
	b.listeners = nil
	b.mu.Unlock()
	for _, cancel := range listeners {
		cancel()
	}
}

func (b *Bridge) requireHost(ctx context.Context) (*lobby.Lobby, error) {
	v, err := b.store.Get(ctx, b.lobbyPath())
	if err != nil {
		return nil, fmt.Errorf("read lobby: %w", err)
	}
	if v == nil {
		return nil, lobby.ErrLobbyNotFound
	}
	var lb lobby.Lobby
	if err := store.Decode(v, &lb); err != nil {
		return nil, fmt.Errorf("read lobby: %w", err)
	}
	if lb.HostID != b.playerID {
		return nil, lobby.ErrNotHost
	}
	return &lb, nil
}

func (b *Bridge) gameState(ctx context.Context) (*lobby.GameState, error) {
	v, err := b.store.Get(ctx, b.gameStatePath())
	if err != nil {
		return nil, fmt.Errorf("read game state: %w", err)
	}
	if v == nil {
		return nil, ErrNoGameState
	}
	var gs lobby.GameState
	if err := store.Decode(v, &gs); err != nil {
		return nil, fmt.Errorf("read game state: %w", err)
	}
	return &gs, nil
}

// reconcileRoundState returns a fully-populated PlayerRoundState for
// playerID, regardless of what (if anything) the shared tree holds.
func reconcileRoundState(all map[string]lobby.PlayerRoundState, playerID string) lobby.PlayerRoundState {
	prs, ok := all[playerID]
	if !ok {
		return lobby.EmptyRoundState()
	}
	if prs.Attempts == nil {
		prs.Attempts = []lobby.GuessAttempt{}
	}
	return prs
}
