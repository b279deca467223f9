// Package tournament sequences solo rounds over a playlist: pick an unused
// track, run the round engine, record the result exactly once, finish after
// the configured round count.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/engine"
	"github.com/songdle/songdle-backend/internal/playback"
	"github.com/songdle/songdle-backend/internal/playlist"
)

var (
	ErrNotStarted         = errors.New("tournament not started")
	ErrNoTracksAvailable  = errors.New("no unused tracks available")
	ErrTournamentComplete = errors.New("tournament is complete")
)

type Config struct {
	PlayerName     string
	TournamentName string
	TotalRounds    int
}

// RoundResult snapshots one finished round.
type RoundResult = engine.Result

// Coordinator owns the round engine for a solo tournament. Round completion
// can be triggered from several paths (win, exhaustion, reveal, starting the
// next round); the roundDone latch guarantees each round is recorded once.
type Coordinator struct {
	eng *engine.Engine
	log *zap.Logger

	mu           sync.Mutex
	tracks       []playlist.Track
	cfg          Config
	started      bool
	complete     bool
	used         map[string]bool
	results      []RoundResult
	currentRound int
	roundDone    bool
	totalScore   int
	roundsWon    int
}

func NewCoordinator(player playback.Player, tracks []playlist.Track, log *zap.Logger) *Coordinator {
	c := &Coordinator{
		log:    log,
		tracks: append([]playlist.Track{}, tracks...),
		used:   make(map[string]bool),
	}
	c.eng = engine.New(player, log, c.recordResult)
	return c
}

// Engine exposes the underlying round engine for clip control and guessing.
func (c *Coordinator) Engine() *engine.Engine { return c.eng }

// Start begins a tournament with cfg, clearing any previous state.
func (c *Coordinator) Start(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	if c.cfg.TotalRounds <= 0 {
		c.cfg.TotalRounds = 5
	}
	c.started = true
	c.complete = false
	c.used = make(map[string]bool)
	c.results = nil
	c.currentRound = 0
	c.roundDone = true
	c.totalScore = 0
	c.roundsWon = 0
	c.mu.Unlock()

	c.log.Info("tournament started",
		zap.String("name", cfg.TournamentName), zap.Int("rounds", c.cfg.TotalRounds))
}

// StartNextRound picks a random unused track and starts the engine on it. A
// still-running previous round is force-completed (and recorded) first.
func (c *Coordinator) StartNextRound(ctx context.Context) (playlist.Track, error) {
	_ = c.eng.RevealAnswer()

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return playlist.Track{}, ErrNotStarted
	}
	if c.complete {
		c.mu.Unlock()
		return playlist.Track{}, ErrTournamentComplete
	}

	var candidates []playlist.Track
	for _, t := range c.tracks {
		if !c.used[t.ID] {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		c.mu.Unlock()
		return playlist.Track{}, ErrNoTracksAvailable
	}

	track := candidates[rand.IntN(len(candidates))]
	prevDone := c.roundDone
	c.used[track.ID] = true
	c.currentRound++
	c.roundDone = false
	c.mu.Unlock()

	if err := c.eng.StartRound(ctx, track); err != nil {
		// the round never started; back out the selection
		c.mu.Lock()
		delete(c.used, track.ID)
		c.currentRound--
		c.roundDone = prevDone
		c.mu.Unlock()
		return playlist.Track{}, fmt.Errorf("start round: %w", err)
	}
	return track, nil
}

// CompleteRound force-completes the current round if it is still live and
// returns the recorded result. Safe to call redundantly.
func (c *Coordinator) CompleteRound() (RoundResult, error) {
	_ = c.eng.RevealAnswer()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return RoundResult{}, ErrNotStarted
	}
	if len(c.results) == 0 {
		return RoundResult{}, engine.ErrNoRound
	}
	return c.results[len(c.results)-1], nil
}

// CompleteTournament marks the tournament terminal; no further rounds start.
func (c *Coordinator) CompleteTournament() {
	c.mu.Lock()
	c.complete = true
	c.mu.Unlock()
}

// Reset clears all tournament and round state back to initial.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	c.started = false
	c.complete = false
	c.cfg = Config{}
	c.used = make(map[string]bool)
	c.results = nil
	c.currentRound = 0
	c.roundDone = true
	c.totalScore = 0
	c.roundsWon = 0
	c.mu.Unlock()

	c.eng.Reset()
}

// recordResult is the engine's completion callback. The roundDone latch makes
// duplicate triggers for the same round no-ops.
func (c *Coordinator) recordResult(res engine.Result) {
	c.mu.Lock()
	if !c.started || c.roundDone {
		c.mu.Unlock()
		return
	}
	c.roundDone = true
	c.results = append(c.results, res)
	c.totalScore += res.Score
	if res.HasWon {
		c.roundsWon++
	}
	finished := c.currentRound >= c.cfg.TotalRounds
	if finished {
		c.complete = true
	}
	round := c.currentRound
	c.mu.Unlock()

	c.log.Info("round recorded",
		zap.Int("round", round),
		zap.Bool("won", res.HasWon),
		zap.Int("score", res.Score),
		zap.Bool("tournamentComplete", finished))
}

func (c *Coordinator) Results() []RoundResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RoundResult{}, c.results...)
}

func (c *Coordinator) CurrentRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRound
}

func (c *Coordinator) TotalScore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalScore
}

func (c *Coordinator) RoundsWon() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundsWon
}

func (c *Coordinator) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}
