package backend

import (
	"context"
	"io"

	"github.com/mwantia/fsdb/data"
)

// StorageBackend stores the bytes of imported files.
type StorageBackend interface {
	Backend

	// PutObject replaces the object at key with size bytes read from r.
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error)

	// GetObject returns a reader over the object; the caller must close it.
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)

	HeadObject(ctx context.Context, key string) (*data.ObjectStat, error)

	DeleteObject(ctx context.Context, key string) error
}
