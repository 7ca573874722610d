package fsdb

import (
	"context"
	"fmt"

	"github.com/mwantia/fsdb/data"
)

// entity carries what scans, filesets and files have in common: a key in
// the catalog and metadata.
type entity struct {
	db  *DB
	key string
}

// ID returns the identifier of the entity within its parent.
func (e *entity) ID() string {
	return data.BaseID(e.key)
}

// Key returns the catalog key, e.g. "scan/fileset/file".
func (e *entity) Key() string {
	return e.key
}

// Entry returns the catalog record of the entity.
func (e *entity) Entry(ctx context.Context) (*data.Entry, error) {
	return e.db.readEntry(ctx, e.key)
}

// Metadata returns all metadata of the entity. The result is a copy.
func (e *entity) Metadata(ctx context.Context) (data.Metadata, error) {
	entry, err := e.db.readEntry(ctx, e.key)
	if err != nil {
		return nil, err
	}

	if entry.Metadata == nil {
		return make(data.Metadata), nil
	}
	return entry.Metadata, nil
}

// MetadataValue returns a single metadata value and whether it is set.
func (e *entity) MetadataValue(ctx context.Context, key string) (any, bool, error) {
	metadata, err := e.Metadata(ctx)
	if err != nil {
		return nil, false, err
	}

	value, exists := metadata.Get(key)
	return value, exists, nil
}

// SetMetadata merges md into the metadata of the entity; keys already set
// are overwritten, others are kept. Values must encode as JSON.
func (e *entity) SetMetadata(ctx context.Context, md map[string]any) error {
	normalized, err := data.NormalizeMetadata(md)
	if err != nil {
		return err
	}
	for key := range normalized {
		if key == "" {
			return fmt.Errorf("empty metadata key: %w", data.ErrInvalid)
		}
	}

	entry, err := e.db.readEntry(ctx, e.key)
	if err != nil {
		return err
	}

	return e.db.updateEntry(ctx, e.key, &data.EntryUpdate{
		Mask: data.EntryUpdateMetadata,
		Entry: &data.Entry{
			Metadata: entry.Metadata.Merge(normalized),
		},
	})
}

// SetMetadataValue sets a single metadata key.
func (e *entity) SetMetadataValue(ctx context.Context, key string, value any) error {
	md := make(data.Metadata, 1)
	md.Set(key, value)

	return e.SetMetadata(ctx, md)
}
