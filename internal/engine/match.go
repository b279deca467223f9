package engine

import (
	"strings"

	"github.com/songdle/songdle-backend/internal/playlist"
)

// minSubstringLen is the shortest guess that can win on containment alone.
// Shorter guesses must match the title or artist exactly.
const minSubstringLen = 4

// Normalize lowercases and trims a guess, title, or artist for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matches reports whether guess identifies track. A guess is correct when it
// equals the title or artist after normalization, or when it is at least four
// characters and contained in either. Containment is one-directional: a guess
// that merely contains the title does not count.
func Matches(track playlist.Track, guess string) bool {
	g := Normalize(guess)
	if g == "" {
		return false
	}
	title := Normalize(track.Title)
	artist := Normalize(track.Artist)

	if g == title || (artist != "" && g == artist) {
		return true
	}
	if len(g) >= minSubstringLen {
		if strings.Contains(title, g) {
			return true
		}
		if artist != "" && strings.Contains(artist, g) {
			return true
		}
	}
	return false
}

// RoundScore is the score for a win after attemptsUsed guesses: 600 on the
// first attempt down to 100 on the last.
func RoundScore(attemptsUsed int) int {
	return (MaxAttempts - attemptsUsed + 1) * 100
}
