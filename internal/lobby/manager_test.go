package lobby

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/songdle/songdle-backend/internal/store"
)

func newTestManager(t *testing.T) (*Manager, store.Store) {
	t.Helper()
	st := store.NewMem(zap.NewNop())
	return NewManager(st, zap.NewNop()), st
}

func TestGenerateCodeFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), code)
		seen[code] = true
	}
	// 50 draws from 36^6 colliding would mean the generator is broken
	assert.Greater(t, len(seen), 45)
}

func TestCreateLobbyHostIsReady(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()

	code, err := m.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	v, err := st.Get(ctx, Path(code))
	require.NoError(t, err)
	var lb Lobby
	require.NoError(t, store.Decode(v, &lb))

	assert.Equal(t, code, lb.ID)
	assert.Equal(t, m.PlayerID(), lb.HostID)
	assert.Equal(t, StatusWaiting, lb.Status)
	assert.Equal(t, DefaultMaxPlayers, lb.MaxPlayers)
	assert.Equal(t, DefaultTotalRounds, lb.GameSettings.TotalRounds)
	assert.Equal(t, "Ana's Tournament", lb.GameSettings.TournamentName)

	host := lb.Players[m.PlayerID()]
	assert.True(t, host.IsHost)
	assert.True(t, host.IsReady)
}

func TestJoinLobby(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	lb, err := guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	p := lb.Players[guest.PlayerID()]
	assert.Equal(t, "Ben", p.Name)
	assert.False(t, p.IsHost)
	assert.False(t, p.IsReady)
}

func TestJoinUnknownLobby(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.JoinLobby(context.Background(), "NOPE12", "Ben")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestJoinStartedLobby(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)
	require.NoError(t, host.StartGame(ctx))

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestJoinFullLobby(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	for i := 0; i < DefaultMaxPlayers-1; i++ {
		g := NewManager(st, zap.NewNop())
		_, err := g.JoinLobby(ctx, code, "guest")
		require.NoError(t, err)
	}

	late := NewManager(st, zap.NewNop())
	_, err = late.JoinLobby(ctx, code, "late")
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestRejoinIsIdempotent(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)
	require.NoError(t, guest.SetPlayerReady(ctx, true))

	lb, err := guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)
	assert.True(t, lb.Players[guest.PlayerID()].IsReady,
		"rejoin must not reset existing player state")
	assert.Len(t, lb.Players, 2)
}

func TestHostLeaveDeletesLobby(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	require.NoError(t, host.LeaveLobby(ctx))

	v, err := st.Get(ctx, Path(code))
	require.NoError(t, err)
	assert.Nil(t, v, "lobby must be gone after the host leaves")

	v, err = st.Get(ctx, "lobbies")
	require.NoError(t, err)
	if all, ok := v.(map[string]any); ok {
		assert.NotContains(t, all, code, "no orphaned lobby subtree may remain")
	}
}

func TestLastPlayerLeaveDeletesLobby(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	// non-host leaves first; lobby survives
	require.NoError(t, guest.LeaveLobby(ctx))
	v, err := st.Get(ctx, Path(code))
	require.NoError(t, err)
	assert.NotNil(t, v)

	require.NoError(t, host.LeaveLobby(ctx))
	v, err = st.Get(ctx, Path(code))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStartGameRequiresReadyPlayers(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	assert.ErrorIs(t, host.StartGame(ctx), ErrNotAllReady)

	require.NoError(t, guest.SetPlayerReady(ctx, true))
	require.NoError(t, host.StartGame(ctx))
}

func TestStartGameSeedsGameState(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)
	require.NoError(t, host.StartGame(ctx))

	v, err := st.Get(ctx, Path(code))
	require.NoError(t, err)
	var lb Lobby
	require.NoError(t, store.Decode(v, &lb))

	assert.Equal(t, StatusPlaying, lb.Status)
	require.NotNil(t, lb.GameState)
	assert.Equal(t, 1, lb.GameState.CurrentRound)
	assert.Nil(t, lb.GameState.CurrentTrack)
	assert.Contains(t, lb.GameState.PlayerGuesses, host.PlayerID())
}

func TestStartGameNonHostRejected(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	assert.ErrorIs(t, guest.StartGame(ctx), ErrNotHost)
}

func TestUpdateSettingsHostOnly(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	assert.ErrorIs(t, guest.UpdateSettings(ctx, Settings{TotalRounds: 3}), ErrNotHost)

	require.NoError(t, host.UpdateSettings(ctx, Settings{
		TotalRounds:    3,
		TournamentName: "Finals",
	}))

	v, err := st.Get(ctx, Path(code)+"/gameSettings/totalRounds")
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)
}

func TestListenDeliversUpdatesAndDeletion(t *testing.T) {
	host, st := newTestManager(t)
	ctx := context.Background()
	code, err := host.CreateLobby(ctx, "Ana")
	require.NoError(t, err)

	watcher := NewManager(st, zap.NewNop())
	var got []*Lobby
	cancel, err := watcher.Listen(code, func(lb *Lobby) { got = append(got, lb) })
	require.NoError(t, err)
	defer cancel()

	guest := NewManager(st, zap.NewNop())
	_, err = guest.JoinLobby(ctx, code, "Ben")
	require.NoError(t, err)

	require.NoError(t, host.LeaveLobby(ctx))

	// join, host's player removal, then lobby deletion
	require.Len(t, got, 3)
	require.NotNil(t, got[0])
	assert.Len(t, got[0].Players, 2)
	assert.Nil(t, got[2], "deletion must surface as a nil snapshot")
}

func TestReapStale(t *testing.T) {
	_, st := newTestManager(t)
	ctx := context.Background()

	old := Lobby{
		ID:        "OLD123",
		CreatedAt: time.Now().Add(-3 * time.Hour).UnixMilli(),
		Status:    StatusWaiting,
	}
	fresh := Lobby{
		ID:        "NEW456",
		CreatedAt: time.Now().UnixMilli(),
		Status:    StatusWaiting,
	}
	require.NoError(t, st.Set(ctx, Path(old.ID), old))
	require.NoError(t, st.Set(ctx, Path(fresh.ID), fresh))

	reaped, err := ReapStale(ctx, st, DefaultStaleAfter, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)

	v, err := st.Get(ctx, Path(old.ID))
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = st.Get(ctx, Path(fresh.ID))
	require.NoError(t, err)
	assert.NotNil(t, v)
}
