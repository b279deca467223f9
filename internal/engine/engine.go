// Package engine runs a single guess-the-track round: the clip duration ramp,
// attempt tracking, and win/loss detection. It drives the playback capability
// but performs no other I/O; multiplayer concerns live in the bridge.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/playback"
	"github.com/songdle/songdle-backend/internal/playlist"
)

var (
	ErrNoRound   = errors.New("no round in progress")
	ErrRoundOver = errors.New("round is already over")
	ErrTrackLoad = errors.New("track failed to load")
)

const MaxAttempts = 6

// ClipDurations is the classic Heardle ramp, one entry per attempt, seconds.
var ClipDurations = []int{1, 2, 4, 7, 11, 16}

const maxHistory = 100

type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseLoaded Phase = "loaded"
	PhaseActive Phase = "active"
	PhaseWon    Phase = "won"
	PhaseLost   Phase = "lost"
)

type Attempt struct {
	Guess        string    `json:"guess"`
	IsCorrect    bool      `json:"isCorrect"`
	ClipDuration int       `json:"clipDuration"`
	Timestamp    time.Time `json:"timestamp"`
}

// Result is emitted exactly once per round, on win, exhaustion, or reveal.
type Result struct {
	Track     playlist.Track
	Attempts  []Attempt
	HasWon    bool
	Score     int
	RoundTime time.Duration
}

// Snapshot is a read-only view of the round for UI layers.
type Snapshot struct {
	Phase               Phase
	Track               playlist.Track
	Attempts            []Attempt
	AttemptNumber       int
	RemainingAttempts   int
	CurrentClipDuration int
	HasWon              bool
	Score               int
}

// Stats aggregates the local game history.
type Stats struct {
	Games        int
	Wins         int
	WinRate      int
	AverageScore int
}

// Engine is the per-client round state machine. The player is a shared
// mutable resource, so every clip start stops whatever came before it, and a
// generation counter keeps a stale clip timer from pausing a newer clip.
type Engine struct {
	mu         sync.Mutex
	player     playback.Player
	log        *zap.Logger
	onComplete func(Result)

	durations []int
	clipUnit  time.Duration

	phase     Phase
	track     playlist.Track
	attempts  []Attempt
	hasWon    bool
	score     int
	startedAt time.Time
	completed bool

	clipGen   int
	clipTimer *time.Timer

	history []Result
}

// New builds an engine around the given player. onComplete may be nil; when
// set it receives each round's Result exactly once.
func New(player playback.Player, log *zap.Logger, onComplete func(Result)) *Engine {
	return &Engine{
		player:     player,
		log:        log,
		onComplete: onComplete,
		durations:  ClipDurations,
		clipUnit:   time.Second,
		phase:      PhaseIdle,
	}
}

// StartRound loads track and resets per-round state. On load failure the
// engine is left idle, as if the round never started.
func (e *Engine) StartRound(ctx context.Context, track playlist.Track) error {
	e.mu.Lock()
	e.cancelClipLocked()
	if e.track.VideoID != "" {
		e.pushHistoryLocked()
	}

	if err := e.player.Load(ctx, track.VideoID); err != nil {
		e.resetLocked()
		e.mu.Unlock()
		e.log.Warn("round start aborted, track did not load",
			zap.String("trackId", track.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTrackLoad, err)
	}
	// the player must come out of load paused, never mid-playback
	_ = e.player.Pause(ctx)

	e.resetLocked()
	e.track = track
	e.phase = PhaseLoaded
	e.startedAt = time.Now()
	e.mu.Unlock()

	e.log.Info("round started", zap.String("trackId", track.ID))
	return nil
}

// PlayClip seeks to the start and plays for the current ramp duration, then
// auto-pauses.
func (e *Engine) PlayClip(ctx context.Context) error {
	e.mu.Lock()
	if err := e.guessableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cancelClipLocked()

	if err := e.player.SeekTo(ctx, 0); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("seek clip start: %w", err)
	}
	if err := e.player.Play(ctx); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("play clip: %w", err)
	}
	e.phase = PhaseActive

	e.clipGen++
	gen := e.clipGen
	d := time.Duration(e.currentDurationLocked()) * e.clipUnit
	e.clipTimer = time.AfterFunc(d, func() { e.clipExpired(gen) })
	e.mu.Unlock()
	return nil
}

// StopClip cancels the running clip and pauses playback.
func (e *Engine) StopClip(ctx context.Context) error {
	e.mu.Lock()
	e.cancelClipLocked()
	e.mu.Unlock()
	return e.player.Pause(ctx)
}

// SubmitGuess records one attempt and returns whether it was correct.
func (e *Engine) SubmitGuess(guess string) (bool, error) {
	e.mu.Lock()
	if err := e.guessableLocked(); err != nil {
		e.mu.Unlock()
		return false, err
	}

	correct := Matches(e.track, guess)
	e.appendAttemptLocked(guess, correct)

	var res Result
	fire := false
	switch {
	case correct:
		e.hasWon = true
		e.score = RoundScore(len(e.attempts))
		res, fire = e.completeLocked(PhaseWon)
	case len(e.attempts) >= MaxAttempts:
		res, fire = e.completeLocked(PhaseLost)
	default:
		e.phase = PhaseActive
	}
	e.mu.Unlock()

	if fire {
		e.fireComplete(res)
	}
	return correct, nil
}

// SkipGuess burns an attempt without guessing. It can exhaust the round but
// never win it.
func (e *Engine) SkipGuess() error {
	e.mu.Lock()
	if err := e.guessableLocked(); err != nil {
		e.mu.Unlock()
		return err
	}

	e.appendAttemptLocked("", false)

	var res Result
	fire := false
	if len(e.attempts) >= MaxAttempts {
		res, fire = e.completeLocked(PhaseLost)
	} else {
		e.phase = PhaseActive
	}
	e.mu.Unlock()

	if fire {
		e.fireComplete(res)
	}
	return nil
}

// RevealAnswer force-ends the round. A round not yet won completes as a loss;
// a finished round is left untouched.
func (e *Engine) RevealAnswer() error {
	e.mu.Lock()
	if e.phase == PhaseIdle {
		e.mu.Unlock()
		return ErrNoRound
	}
	if e.phase == PhaseWon || e.phase == PhaseLost {
		e.mu.Unlock()
		return nil
	}
	res, fire := e.completeLocked(PhaseLost)
	e.mu.Unlock()

	if fire {
		e.fireComplete(res)
	}
	return nil
}

// PlayFullSong leaves clip mode and plays the track from the start without
// restriction. Does not count as an attempt.
func (e *Engine) PlayFullSong(ctx context.Context) error {
	e.mu.Lock()
	if e.phase == PhaseIdle {
		e.mu.Unlock()
		return ErrNoRound
	}
	e.cancelClipLocked()
	e.mu.Unlock()

	if err := e.player.SeekTo(ctx, 0); err != nil {
		return fmt.Errorf("seek song start: %w", err)
	}
	if err := e.player.Play(ctx); err != nil {
		return fmt.Errorf("play full song: %w", err)
	}
	return nil
}

// Reset clears the round (archiving it to history) and returns to idle.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.cancelClipLocked()
	if e.track.VideoID != "" {
		e.pushHistoryLocked()
	}
	e.resetLocked()
	e.mu.Unlock()
	_ = e.player.Pause(context.Background())
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	remaining := MaxAttempts - len(e.attempts)
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		Phase:               e.phase,
		Track:               e.track,
		Attempts:            append([]Attempt{}, e.attempts...),
		AttemptNumber:       len(e.attempts) + 1,
		RemainingAttempts:   remaining,
		CurrentClipDuration: e.currentDurationLocked(),
		HasWon:              e.hasWon,
		Score:               e.score,
	}
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{Games: len(e.history)}
	if s.Games == 0 {
		return s
	}
	total := 0
	for _, r := range e.history {
		if r.HasWon {
			s.Wins++
		}
		total += r.Score
	}
	s.WinRate = int(float64(s.Wins)/float64(s.Games)*100 + 0.5)
	s.AverageScore = int(float64(total)/float64(s.Games) + 0.5)
	return s
}

func (e *Engine) guessableLocked() error {
	switch e.phase {
	case PhaseIdle:
		return ErrNoRound
	case PhaseWon, PhaseLost:
		return ErrRoundOver
	}
	return nil
}

// currentDurationLocked is the ramp value for the attempt about to be played.
func (e *Engine) currentDurationLocked() int {
	i := len(e.attempts)
	if i >= len(e.durations) {
		i = len(e.durations) - 1
	}
	return e.durations[i]
}

func (e *Engine) appendAttemptLocked(guess string, correct bool) {
	e.attempts = append(e.attempts, Attempt{
		Guess:        guess,
		IsCorrect:    correct,
		ClipDuration: e.currentDurationLocked(),
		Timestamp:    time.Now(),
	})
}

func (e *Engine) completeLocked(phase Phase) (Result, bool) {
	if e.completed {
		return Result{}, false
	}
	e.completed = true
	e.phase = phase
	e.cancelClipLocked()
	_ = e.player.Pause(context.Background())
	return e.resultLocked(), true
}

func (e *Engine) resultLocked() Result {
	return Result{
		Track:     e.track,
		Attempts:  append([]Attempt{}, e.attempts...),
		HasWon:    e.hasWon,
		Score:     e.score,
		RoundTime: time.Since(e.startedAt),
	}
}

func (e *Engine) fireComplete(res Result) {
	if e.onComplete != nil {
		e.onComplete(res)
	}
}

func (e *Engine) pushHistoryLocked() {
	e.history = append(e.history, e.resultLocked())
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}
}

func (e *Engine) resetLocked() {
	e.track = playlist.Track{}
	e.attempts = nil
	e.hasWon = false
	e.score = 0
	e.completed = false
	e.phase = PhaseIdle
	e.startedAt = time.Time{}
}

// cancelClipLocked invalidates any armed clip timer. Must run whenever a new
// clip starts, the round resets, or full-song playback begins, or a stale
// timer would pause the new playback.
func (e *Engine) cancelClipLocked() {
	e.clipGen++
	if e.clipTimer != nil {
		e.clipTimer.Stop()
		e.clipTimer = nil
	}
}

func (e *Engine) clipExpired(gen int) {
	e.mu.Lock()
	if e.clipGen != gen {
		e.mu.Unlock()
		return
	}
	e.clipTimer = nil
	e.mu.Unlock()
	_ = e.player.Pause(context.Background())
}
