// Package lobby manages multiplayer sessions keyed by a short join code.
// Lobby state lives in the shared store; every client runs its own Manager
// and converges on whatever the store holds.
package lobby

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	IsReady  bool   `json:"isReady"`
	JoinedAt int64  `json:"joinedAt"`
}

type Settings struct {
	TotalRounds    int    `json:"totalRounds"`
	PlaylistURL    string `json:"playlistUrl"`
	TournamentName string `json:"tournamentName"`
}

type Lobby struct {
	ID           string            `json:"id"`
	HostID       string            `json:"hostId"`
	HostName     string            `json:"hostName"`
	Players      map[string]Player `json:"players"`
	GameSettings Settings          `json:"gameSettings"`
	Status       Status            `json:"status"`
	CreatedAt    int64             `json:"createdAt"`
	MaxPlayers   int               `json:"maxPlayers"`
	GameState    *GameState        `json:"gameState,omitempty"`
}

// Path returns the lobby's root path in the shared store.
func Path(code string) string { return "lobbies/" + code }
