package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Mem is the in-memory store backend. It is the reference implementation of
// the last-write-wins tree the multiplayer layer is written against; an
// optional Blob backing persists the whole tree so a restart (or another
// process on the same machine, in demo mode) picks up where it left off.
type Mem struct {
	mu      sync.RWMutex
	root    map[string]any
	notif   *notifier
	blob    Blob
	blobKey string
	log     *zap.Logger
}

func NewMem(log *zap.Logger) *Mem {
	return &Mem{
		root:  make(map[string]any),
		notif: newNotifier(),
		log:   log,
	}
}

// NewMemWithBlob loads any previously persisted tree from blob under key and
// writes the tree back after every mutation.
func NewMemWithBlob(blob Blob, key string, log *zap.Logger) (*Mem, error) {
	m := NewMem(log)
	m.blob = blob
	m.blobKey = key

	raw, ok, err := blob.GetItem(key)
	if err != nil {
		return nil, fmt.Errorf("load persisted tree: %w", err)
	}
	if ok {
		var root map[string]any
		if err := json.Unmarshal([]byte(raw), &root); err != nil {
			// A corrupt blob is not fatal; start fresh rather than brick the
			// store.
			log.Warn("discarding corrupt persisted tree", zap.Error(err))
		} else {
			m.root = root
		}
	}
	return m, nil
}

func (m *Mem) Get(_ context.Context, path string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deepCopy(valueAt(m.root, splitPath(path))), nil
}

func (m *Mem) Set(_ context.Context, path string, value any) error {
	enc, err := Encode(value)
	if err != nil {
		return err
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("set: empty path")
	}

	m.mu.Lock()
	setAt(m.root, parts, enc)
	m.persistLocked()
	m.mu.Unlock()

	m.notif.notify(path, m.lookup)
	return nil
}

func (m *Mem) Update(_ context.Context, path string, fields map[string]any) error {
	encoded := make(map[string]any, len(fields))
	for k, v := range fields {
		enc, err := Encode(v)
		if err != nil {
			return err
		}
		encoded[k] = enc
	}

	m.mu.Lock()
	for k, v := range encoded {
		parts := append(splitPath(path), splitPath(k)...)
		setAt(m.root, parts, v)
	}
	m.persistLocked()
	m.mu.Unlock()

	m.notif.notify(path, m.lookup)
	return nil
}

func (m *Mem) Remove(_ context.Context, path string) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fmt.Errorf("remove: empty path")
	}

	m.mu.Lock()
	removeAt(m.root, parts)
	m.persistLocked()
	m.mu.Unlock()

	m.notif.notify(path, m.lookup)
	return nil
}

func (m *Mem) Subscribe(path string, fn func(any)) (func(), error) {
	return m.notif.subscribe(path, fn), nil
}

func (m *Mem) lookup(path string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deepCopy(valueAt(m.root, splitPath(path)))
}

func (m *Mem) persistLocked() {
	if m.blob == nil {
		return
	}
	raw, err := json.Marshal(m.root)
	if err != nil {
		m.log.Warn("could not serialize tree for persistence", zap.Error(err))
		return
	}
	if err := m.blob.SetItem(m.blobKey, string(raw)); err != nil {
		m.log.Warn("could not persist tree", zap.Error(err))
	}
}
