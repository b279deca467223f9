package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Blob is a minimal key/string persistence surface, shaped like browser
// localStorage so web and server deployments can share the same fallback.
type Blob interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
}

// FileBlob keeps one file per key inside a directory.
type FileBlob struct {
	dir string
}

func NewFileBlob(dir string) (*FileBlob, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileBlob{dir: dir}, nil
}

func (b *FileBlob) GetItem(key string) (string, bool, error) {
	raw, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read blob %q: %w", key, err)
	}
	return string(raw), true, nil
}

func (b *FileBlob) SetItem(key, value string) error {
	tmp := b.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if err := os.Rename(tmp, b.path(key)); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

func (b *FileBlob) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}
