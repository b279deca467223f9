// Package playback defines the capability the round engine drives. The real
// player lives on the client side (an embedded YouTube iframe); the engine
// only ever talks to this interface.
package playback

import (
	"context"
	"errors"
)

var ErrLoadTimeout = errors.New("playback: track load timed out")

type State string

const (
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateBuffering State = "buffering"
	StateEnded     State = "ended"
)

// Player is a single mutable resource per client, not per round. Load blocks
// until the track is playable or the context expires; implementations must
// return an error rather than hang.
type Player interface {
	Load(ctx context.Context, videoID string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, seconds float64) error
	Duration(ctx context.Context) (float64, error)
	CurrentTime(ctx context.Context) (float64, error)
	SetVolume(ctx context.Context, percent int) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	OnStateChange(fn func(State)) (cancel func())
}
