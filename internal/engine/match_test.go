package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/songdle/songdle-backend/internal/playlist"
)

func TestMatches(t *testing.T) {
	goldSeed := playlist.Track{Title: "Gold Seed", Artist: "Mo"}

	tests := []struct {
		name  string
		track playlist.Track
		guess string
		want  bool
	}{
		{"exact title", goldSeed, "Gold Seed", true},
		{"case and whitespace", goldSeed, "  gold seed ", true},
		{"exact short artist", goldSeed, "mo", true},
		{"substring of title", goldSeed, "gold", true},
		{"short non-exact guess", goldSeed, "go", false},
		{"guess contains title", goldSeed, "gold seed deluxe", false},
		{"empty guess", goldSeed, "", false},
		{"whitespace guess", goldSeed, "   ", false},
		{"substring of artist", playlist.Track{Title: "Counterattack", Artist: "ACE+"}, "ace+", true},
		{"no artist no match", playlist.Track{Title: "Counterattack"}, "ace+", false},
		{"wrong track", goldSeed, "counterattack", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.track, tt.guess))
		})
	}
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 600, RoundScore(1))
	assert.Equal(t, 500, RoundScore(2))
	assert.Equal(t, 100, RoundScore(6))
}
