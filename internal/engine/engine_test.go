package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/playback"
	"github.com/songdle/songdle-backend/internal/playlist"
)

var testTrack = playlist.Track{
	ID:      "t1",
	VideoID: "vid_t1",
	Title:   "Gold Seed",
	Artist:  "Mo",
}

func newTestEngine(t *testing.T, onComplete func(Result)) (*Engine, *playback.Fake) {
	t.Helper()
	fake := playback.NewFake()
	return New(fake, zap.NewNop(), onComplete), fake
}

func TestStartRoundLoadsAndPauses(t *testing.T) {
	e, fake := newTestEngine(t, nil)

	require.NoError(t, e.StartRound(context.Background(), testTrack))

	assert.Equal(t, "vid_t1", fake.Loaded())
	assert.False(t, fake.Playing())
	snap := e.Snapshot()
	assert.Equal(t, PhaseLoaded, snap.Phase)
	assert.Equal(t, 1, snap.CurrentClipDuration)
	assert.Equal(t, MaxAttempts, snap.RemainingAttempts)
}

func TestStartRoundLoadFailureLeavesIdle(t *testing.T) {
	e, fake := newTestEngine(t, nil)
	fake.LoadErr = assert.AnError

	err := e.StartRound(context.Background(), testTrack)
	require.ErrorIs(t, err, ErrTrackLoad)

	assert.Equal(t, PhaseIdle, e.Snapshot().Phase)
	_, err = e.SubmitGuess("gold seed")
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestFirstAttemptWinScores600(t *testing.T) {
	var results []Result
	e, _ := newTestEngine(t, func(r Result) { results = append(results, r) })
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	correct, err := e.SubmitGuess("gold seed")
	require.NoError(t, err)
	assert.True(t, correct)

	snap := e.Snapshot()
	assert.Equal(t, PhaseWon, snap.Phase)
	assert.Equal(t, 600, snap.Score)

	require.Len(t, results, 1)
	assert.True(t, results[0].HasWon)
	assert.Equal(t, 600, results[0].Score)
}

func TestLastAttemptWinScores100(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	for i := 0; i < 5; i++ {
		correct, err := e.SubmitGuess("wrong guess")
		require.NoError(t, err)
		assert.False(t, correct)
	}
	correct, err := e.SubmitGuess("gold seed")
	require.NoError(t, err)
	assert.True(t, correct)
	assert.Equal(t, 100, e.Snapshot().Score)
}

func TestSixWrongGuessesLoseTheRound(t *testing.T) {
	var results []Result
	e, _ := newTestEngine(t, func(r Result) { results = append(results, r) })
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	for i := 0; i < MaxAttempts; i++ {
		_, err := e.SubmitGuess("wrong guess")
		require.NoError(t, err)
	}

	snap := e.Snapshot()
	assert.Equal(t, PhaseLost, snap.Phase)
	assert.Zero(t, snap.Score)

	require.Len(t, results, 1)
	assert.False(t, results[0].HasWon)

	_, err := e.SubmitGuess("gold seed")
	assert.ErrorIs(t, err, ErrRoundOver)
}

func TestSkipsExhaustTheRound(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	for i := 0; i < MaxAttempts; i++ {
		require.NoError(t, e.SkipGuess())
	}

	assert.Equal(t, PhaseLost, e.Snapshot().Phase)
	assert.ErrorIs(t, e.SkipGuess(), ErrRoundOver)
}

func TestClipDurationRamp(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	want := []int{1, 2, 4, 7, 11, 16}
	for _, d := range want {
		assert.Equal(t, d, e.Snapshot().CurrentClipDuration)
		if e.Snapshot().RemainingAttempts > 1 {
			require.NoError(t, e.SkipGuess())
		}
	}
}

func TestPlayClipAutoPauses(t *testing.T) {
	e, fake := newTestEngine(t, nil)
	e.clipUnit = time.Millisecond
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	require.NoError(t, e.PlayClip(context.Background()))
	assert.True(t, fake.Playing())

	assert.Eventually(t, func() bool { return !fake.Playing() },
		time.Second, 5*time.Millisecond)
}

func TestStaleClipTimerDoesNotPauseNewClip(t *testing.T) {
	e, fake := newTestEngine(t, nil)
	e.clipUnit = 20 * time.Millisecond
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	require.NoError(t, e.PlayClip(context.Background()))
	// restart the clip before the first timer fires
	require.NoError(t, e.PlayClip(context.Background()))

	time.Sleep(10 * time.Millisecond)
	assert.True(t, fake.Playing(), "first clip's timer must not pause the second clip")
}

func TestRevealAnswerCompletesOnce(t *testing.T) {
	var results []Result
	e, _ := newTestEngine(t, func(r Result) { results = append(results, r) })
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	_, err := e.SubmitGuess("wrong guess")
	require.NoError(t, err)

	require.NoError(t, e.RevealAnswer())
	require.NoError(t, e.RevealAnswer())

	assert.Equal(t, PhaseLost, e.Snapshot().Phase)
	require.Len(t, results, 1)
	assert.False(t, results[0].HasWon)
	assert.Len(t, results[0].Attempts, 1)
}

func TestRevealAfterWinKeepsTheWin(t *testing.T) {
	var results []Result
	e, _ := newTestEngine(t, func(r Result) { results = append(results, r) })
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	_, err := e.SubmitGuess("gold seed")
	require.NoError(t, err)
	require.NoError(t, e.RevealAnswer())

	assert.Equal(t, PhaseWon, e.Snapshot().Phase)
	require.Len(t, results, 1)
	assert.True(t, results[0].HasWon)
}

func TestRevealWithoutRound(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	assert.ErrorIs(t, e.RevealAnswer(), ErrNoRound)
}

func TestPlayFullSongCancelsClipTimer(t *testing.T) {
	e, fake := newTestEngine(t, nil)
	e.clipUnit = 5 * time.Millisecond
	require.NoError(t, e.StartRound(context.Background(), testTrack))

	require.NoError(t, e.PlayClip(context.Background()))
	require.NoError(t, e.PlayFullSong(context.Background()))

	time.Sleep(25 * time.Millisecond)
	assert.True(t, fake.Playing(), "clip timer must not cut off full-song playback")
}

func TestStatsAggregateHistory(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	require.NoError(t, e.StartRound(ctx, testTrack))
	_, err := e.SubmitGuess("gold seed")
	require.NoError(t, err)

	track2 := playlist.Track{ID: "t2", VideoID: "vid_t2", Title: "Counterattack"}
	require.NoError(t, e.StartRound(ctx, track2))
	for i := 0; i < MaxAttempts; i++ {
		require.NoError(t, e.SkipGuess())
	}
	e.Reset()

	stats := e.Stats()
	assert.Equal(t, 2, stats.Games)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 50, stats.WinRate)
	assert.Equal(t, 300, stats.AverageScore)
}
