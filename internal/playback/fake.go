package playback

import (
	"context"
	"sync"
)

// Fake records every call so engine tests can assert on playback behavior.
type Fake struct {
	mu sync.Mutex

	// LoadErr, when set, makes Load fail.
	LoadErr error
	// TrackDuration is returned by Duration.
	TrackDuration float64

	loaded   string
	playing  bool
	position float64
	volume   int
	muted    bool
	calls    []string
	watchers []func(State)
}

func NewFake() *Fake {
	return &Fake{volume: 50, TrackDuration: 180}
}

func (f *Fake) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *Fake) Load(_ context.Context, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("load:" + videoID)
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.loaded = videoID
	f.playing = false
	f.position = 0
	return nil
}

func (f *Fake) Play(context.Context) error {
	f.mu.Lock()
	f.record("play")
	f.playing = true
	f.mu.Unlock()
	f.emit(StatePlaying)
	return nil
}

func (f *Fake) Pause(context.Context) error {
	f.mu.Lock()
	f.record("pause")
	f.playing = false
	f.mu.Unlock()
	f.emit(StatePaused)
	return nil
}

func (f *Fake) SeekTo(_ context.Context, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seek")
	f.position = seconds
	return nil
}

func (f *Fake) Duration(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TrackDuration, nil
}

func (f *Fake) CurrentTime(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, nil
}

func (f *Fake) SetVolume(_ context.Context, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("volume")
	f.volume = percent
	return nil
}

func (f *Fake) Mute(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mute")
	f.muted = true
	return nil
}

func (f *Fake) Unmute(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unmute")
	f.muted = false
	return nil
}

func (f *Fake) OnStateChange(fn func(State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers = append(f.watchers, fn)
	i := len(f.watchers) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.watchers[i] = nil
	}
}

func (f *Fake) emit(s State) {
	f.mu.Lock()
	watchers := append([]func(State){}, f.watchers...)
	f.mu.Unlock()
	for _, w := range watchers {
		if w != nil {
			w(s)
		}
	}
}

// Calls returns the ordered call log.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// Playing reports whether the fake is currently playing.
func (f *Fake) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// Loaded returns the video ID of the last successful Load.
func (f *Fake) Loaded() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}
