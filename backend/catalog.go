package backend

import (
	"context"

	"github.com/mwantia/fsdb/data"
)

// CatalogBackend stores the scan/fileset/file hierarchy and its metadata.
// Keys follow data.JoinKey; parents are validated by the database layer.
type CatalogBackend interface {
	Backend

	// CreateEntry stores a new entry and fails with data.ErrExist if the key is taken.
	CreateEntry(ctx context.Context, entry *data.Entry) error

	ReadEntry(ctx context.Context, key string) (*data.Entry, error)

	UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error

	// DeleteEntry removes the entry and every descendant entry.
	DeleteEntry(ctx context.Context, key string) error

	ExistsEntry(ctx context.Context, key string) (bool, error)

	QueryEntries(ctx context.Context, query *EntryQuery) (*EntryQueryResult, error)
}
