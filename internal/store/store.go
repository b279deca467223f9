// Package store defines the shared state tree every client syncs through.
// Paths are slash-separated, keyed by lobby code, e.g. "lobbies/ABC123/gameState".
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrAbsent = errors.New("store: value absent")

// Store is a path-addressed tree of JSON-shaped values. Get returns nil for
// absent paths. Subscriptions fire on any write at, below, or above the
// subscribed path and deliver the current value at that path (nil once the
// subtree is gone).
type Store interface {
	Get(ctx context.Context, path string) (any, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error
	Subscribe(path string, fn func(any)) (func(), error)
}

// Encode converts a struct into the JSON-shaped form stored in the tree.
func Encode(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return out, nil
}

// Decode fills out from a tree value. Returns ErrAbsent for nil values so
// callers can distinguish "gone" from a malformed read.
func Decode(v any, out any) error {
	if v == nil {
		return ErrAbsent
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

type subscription struct {
	path string
	fn   func(any)
}

// notifier tracks subscriptions and fans out change notifications. Shared by
// the in-memory and database-backed stores; callbacks run on the goroutine
// that performed the mutation, after the store's own lock is released.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]subscription
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]subscription)}
}

func (n *notifier) subscribe(path string, fn func(any)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = subscription{path: path, fn: fn}
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// notify invokes every subscriber whose path overlaps the changed path,
// resolving each subscriber's current value through lookup.
func (n *notifier) notify(changed string, lookup func(path string) any) {
	n.mu.Lock()
	var hit []subscription
	for _, s := range n.subs {
		if pathsOverlap(s.path, changed) {
			hit = append(hit, s)
		}
	}
	n.mu.Unlock()

	for _, s := range hit {
		s.fn(lookup(s.path))
	}
}
