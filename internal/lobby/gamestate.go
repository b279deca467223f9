package lobby

import "github.com/songdle/songdle-backend/internal/engine"

// TrackRef mirrors the current round's track into the shared store so every
// client can load and judge guesses locally.
type TrackRef struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist,omitempty"`
	VideoID string `json:"videoId"`
}

type GuessAttempt struct {
	Guess     string `json:"guess"`
	IsCorrect bool   `json:"isCorrect"`
	Timestamp int64  `json:"timestamp"`
}

// PlayerRoundState is the subtree each player owns under
// gameState/playerGuesses/{playerId}. Attempts are append-only within a
// round; TotalScore and RoundsWon persist across rounds.
type PlayerRoundState struct {
	Attempts   []GuessAttempt `json:"attempts"`
	HasWon     bool           `json:"hasWon"`
	HasLost    bool           `json:"hasLost"`
	RoundScore int            `json:"roundScore"`
	TotalScore int            `json:"totalScore"`
	RoundsWon  int            `json:"roundsWon"`
}

// GameState is attached to a playing lobby. Round-control fields (current
// track, round number, clip duration) are written only by the host; each
// player writes only their own playerGuesses subtree.
type GameState struct {
	CurrentRound        int                         `json:"currentRound"`
	CurrentTrack        *TrackRef                   `json:"currentTrack"`
	CurrentAttempt      int                         `json:"currentAttempt"`
	MaxAttempts         int                         `json:"maxAttempts"`
	ClipDurations       []int                       `json:"clipDurations"`
	CurrentClipDuration int                         `json:"currentClipDuration"`
	IsRoundActive       bool                        `json:"isRoundActive"`
	RoundStartTime      int64                       `json:"roundStartTime"`
	RoundEndTime        int64                       `json:"roundEndTime"`
	UsedTracks          []string                    `json:"usedTracks"`
	PlayersReady        map[string]bool             `json:"playersReady"`
	PlayerGuesses       map[string]PlayerRoundState `json:"playerGuesses"`
}

// NewGameState seeds the state written when the host starts the game: round 1,
// no track yet, zeroed per-player state for every current member.
func NewGameState(playerIDs []string) GameState {
	gs := GameState{
		CurrentRound:        1,
		MaxAttempts:         engine.MaxAttempts,
		ClipDurations:       append([]int{}, engine.ClipDurations...),
		CurrentClipDuration: engine.ClipDurations[0],
		UsedTracks:          []string{},
		PlayersReady:        map[string]bool{},
		PlayerGuesses:       map[string]PlayerRoundState{},
	}
	for _, id := range playerIDs {
		gs.PlayerGuesses[id] = EmptyRoundState()
	}
	return gs
}

// EmptyRoundState is the structural default a missing player subtree is
// reconciled to before any mutation.
func EmptyRoundState() PlayerRoundState {
	return PlayerRoundState{Attempts: []GuessAttempt{}}
}
