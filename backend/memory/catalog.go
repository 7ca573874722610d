package memory

import (
	"context"
	"time"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

func (mb *MemoryBackend) CreateEntry(ctx context.Context, entry *data.Entry) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.entries.Get(entry.Key); exists {
		return data.ErrExist
	}

	clone := entry.Clone()
	if clone.Metadata == nil {
		clone.Metadata = make(data.Metadata)
	}
	if clone.CreateTime.IsZero() {
		clone.CreateTime = time.Now()
	}
	if clone.ModifyTime.IsZero() {
		clone.ModifyTime = clone.CreateTime
	}

	mb.entries.Set(entry.Key, clone)
	return nil
}

func (mb *MemoryBackend) ReadEntry(ctx context.Context, key string) (*data.Entry, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	entry, exists := mb.entries.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	return entry.Clone(), nil
}

func (mb *MemoryBackend) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	entry, exists := mb.entries.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	_, err := update.Apply(entry)
	return err
}

func (mb *MemoryBackend) DeleteEntry(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.entries.Get(key); !exists {
		return data.ErrNotExist
	}

	// Collect first, the tree must not be modified while iterating
	keys := []string{key}
	mb.entries.Ascend(key+data.KeySeparator, func(child string, _ *data.Entry) bool {
		if !data.IsDescendantKey(key, child) {
			return false
		}
		keys = append(keys, child)
		return true
	})

	for _, k := range keys {
		mb.entries.Delete(k)
	}

	return nil
}

func (mb *MemoryBackend) ExistsEntry(ctx context.Context, key string) (bool, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	_, exists := mb.entries.Get(key)
	return exists, nil
}

func (mb *MemoryBackend) QueryEntries(ctx context.Context, query *backend.EntryQuery) (*backend.EntryQueryResult, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	pivot := ""
	if query.Parent != "" {
		pivot = query.Parent + data.KeySeparator
	}

	candidates := make([]*data.Entry, 0)
	mb.entries.Ascend(pivot, func(key string, entry *data.Entry) bool {
		if query.Parent != "" && !data.IsDescendantKey(query.Parent, key) {
			return false
		}
		candidates = append(candidates, entry.Clone())
		return true
	})

	return backend.ApplyQuery(candidates, query), nil
}
