package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// entry is one document row: the first path segment selects the collection,
// the second the document, anything deeper navigates inside the JSON doc.
type entry struct {
	Collection string `gorm:"primaryKey;size:64"`
	Key        string `gorm:"primaryKey;size:128"`
	Doc        []byte `gorm:"type:jsonb"`
}

func (entry) TableName() string { return "store_entries" }

// Gorm is the database-backed store. Reads and writes go through one
// transactional document per lobby, which removes the read-modify-write races
// the in-memory tree accepts. Change notifications only reach subscribers in
// the same process.
type Gorm struct {
	db    *gorm.DB
	notif *notifier
	log   *zap.Logger
}

func NewGorm(db *gorm.DB, log *zap.Logger) (*Gorm, error) {
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrate store schema: %w", err)
	}
	return &Gorm{db: db, notif: newNotifier(), log: log}, nil
}

func parseDocPath(path string) (collection, key string, rest []string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return "", "", nil, fmt.Errorf("empty path")
	}
	collection = parts[0]
	if len(parts) > 1 {
		key = parts[1]
		rest = parts[2:]
	}
	return collection, key, rest, nil
}

func (g *Gorm) Get(ctx context.Context, path string) (any, error) {
	collection, key, rest, err := parseDocPath(path)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}

	if key == "" {
		var rows []entry
		if err := g.db.WithContext(ctx).Where("collection = ?", collection).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("get %q: %w", path, err)
		}
		if len(rows) == 0 {
			return nil, nil
		}
		out := make(map[string]any, len(rows))
		for _, row := range rows {
			var doc any
			if err := json.Unmarshal(row.Doc, &doc); err != nil {
				return nil, fmt.Errorf("get %q: decode doc %s: %w", path, row.Key, err)
			}
			out[row.Key] = doc
		}
		return out, nil
	}

	doc, found, err := g.loadDoc(ctx, collection, key)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}
	if !found {
		return nil, nil
	}
	return valueAt(doc, rest), nil
}

func (g *Gorm) Set(ctx context.Context, path string, value any) error {
	if err := g.mutate(ctx, path, func(doc map[string]any, rest []string) (any, error) {
		enc, err := Encode(value)
		if err != nil {
			return nil, err
		}
		if len(rest) == 0 {
			return enc, nil
		}
		setAt(doc, rest, enc)
		return doc, nil
	}); err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	g.notif.notify(path, g.lookup)
	return nil
}

func (g *Gorm) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := g.mutate(ctx, path, func(doc map[string]any, rest []string) (any, error) {
		for k, v := range fields {
			enc, err := Encode(v)
			if err != nil {
				return nil, err
			}
			setAt(doc, append(append([]string{}, rest...), splitPath(k)...), enc)
		}
		return doc, nil
	}); err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	g.notif.notify(path, g.lookup)
	return nil
}

func (g *Gorm) Remove(ctx context.Context, path string) error {
	collection, key, rest, err := parseDocPath(path)
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}

	switch {
	case key == "":
		err = g.db.WithContext(ctx).Where("collection = ?", collection).Delete(&entry{}).Error
	case len(rest) == 0:
		err = g.db.WithContext(ctx).
			Where("collection = ? AND key = ?", collection, key).
			Delete(&entry{}).Error
	default:
		err = g.mutate(ctx, path, func(doc map[string]any, rest []string) (any, error) {
			removeAt(doc, rest)
			return doc, nil
		})
	}
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	g.notif.notify(path, g.lookup)
	return nil
}

func (g *Gorm) Subscribe(path string, fn func(any)) (func(), error) {
	return g.notif.subscribe(path, fn), nil
}

func (g *Gorm) loadDoc(ctx context.Context, collection, key string) (any, bool, error) {
	var row entry
	err := g.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc any
	if err := json.Unmarshal(row.Doc, &doc); err != nil {
		return nil, false, fmt.Errorf("decode doc: %w", err)
	}
	return doc, true, nil
}

// mutate runs a read-modify-write on one document inside a transaction.
func (g *Gorm) mutate(ctx context.Context, path string, apply func(doc map[string]any, rest []string) (any, error)) error {
	collection, key, rest, err := parseDocPath(path)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("document key required")
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entry
		doc := make(map[string]any)
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND key = ?", collection, key).
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fresh document
		case err != nil:
			return err
		default:
			var existing any
			if err := json.Unmarshal(row.Doc, &existing); err != nil {
				return fmt.Errorf("decode doc: %w", err)
			}
			if m, ok := existing.(map[string]any); ok {
				doc = m
			}
		}

		next, err := apply(doc, rest)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode doc: %w", err)
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&entry{Collection: collection, Key: key, Doc: raw}).Error
	})
}

func (g *Gorm) lookup(path string) any {
	v, err := g.Get(context.Background(), path)
	if err != nil {
		g.log.Warn("subscription lookup failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	return v
}
