// Package playlist loads the track pools tournaments draw from.
package playlist

import "context"

type Track struct {
	ID       string `json:"id"`
	VideoID  string `json:"videoId"`
	Title    string `json:"title"`
	Artist   string `json:"artist,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// Source resolves a playlist reference (URL or raw playlist ID) into its full
// track list.
type Source interface {
	Tracks(ctx context.Context, ref string) ([]Track, error)
}

// Static serves a fixed track list regardless of the reference. Used for solo
// play against a preloaded pool and throughout the tests.
type Static []Track

func (s Static) Tracks(context.Context, string) ([]Track, error) {
	return append([]Track{}, s...), nil
}
