// Package readonly wraps backends so that a database can be inspected
// without taking its lock.
package readonly

import (
	"context"
	"io"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

// ReadOnlyBackend passes reads through to the wrapped backend and rejects
// all writes with data.ErrReadOnly. It never locks the database.
type ReadOnlyBackend struct {
	backend backend.Backend
}

// NewReadOnlyBackend creates a read-only wrapper around the given backend.
func NewReadOnlyBackend(b backend.Backend) *ReadOnlyBackend {
	return &ReadOnlyBackend{
		backend: b,
	}
}

// Unwrap returns the wrapped backend.
func (rob *ReadOnlyBackend) Unwrap() backend.Backend {
	return rob.backend
}

func (rob *ReadOnlyBackend) Name() string {
	return rob.backend.Name()
}

func (rob *ReadOnlyBackend) Open(ctx context.Context) error {
	return rob.backend.Open(ctx)
}

func (rob *ReadOnlyBackend) Close(ctx context.Context) error {
	return rob.backend.Close(ctx)
}

// Shutdown releases resources of the wrapped backend, if it holds any.
func (rob *ReadOnlyBackend) Shutdown() error {
	if s, ok := rob.backend.(interface{ Shutdown() error }); ok {
		return s.Shutdown()
	}
	return nil
}

// GetCapabilities returns the capabilities of the wrapped backend without
// CapabilityLock.
func (rob *ReadOnlyBackend) GetCapabilities() *backend.BackendCapabilities {
	inner := rob.backend.GetCapabilities()
	if inner == nil {
		return &backend.BackendCapabilities{}
	}

	capabilities := &backend.BackendCapabilities{
		MaxObjectSize: inner.MaxObjectSize,
	}
	for _, capability := range inner.Capabilities {
		if capability != backend.CapabilityLock {
			capabilities.Capabilities = append(capabilities.Capabilities, capability)
		}
	}

	return capabilities
}

func (rob *ReadOnlyBackend) catalog() (backend.CatalogBackend, error) {
	catalog, ok := rob.backend.(backend.CatalogBackend)
	if !ok {
		return nil, data.ErrBackendUnsupported
	}
	return catalog, nil
}

func (rob *ReadOnlyBackend) storage() (backend.StorageBackend, error) {
	storage, ok := rob.backend.(backend.StorageBackend)
	if !ok {
		return nil, data.ErrBackendUnsupported
	}
	return storage, nil
}

func (rob *ReadOnlyBackend) CreateEntry(ctx context.Context, entry *data.Entry) error {
	return data.ErrReadOnly
}

func (rob *ReadOnlyBackend) ReadEntry(ctx context.Context, key string) (*data.Entry, error) {
	catalog, err := rob.catalog()
	if err != nil {
		return nil, err
	}
	return catalog.ReadEntry(ctx, key)
}

func (rob *ReadOnlyBackend) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	return data.ErrReadOnly
}

func (rob *ReadOnlyBackend) DeleteEntry(ctx context.Context, key string) error {
	return data.ErrReadOnly
}

func (rob *ReadOnlyBackend) ExistsEntry(ctx context.Context, key string) (bool, error) {
	catalog, err := rob.catalog()
	if err != nil {
		return false, err
	}
	return catalog.ExistsEntry(ctx, key)
}

func (rob *ReadOnlyBackend) QueryEntries(ctx context.Context, query *backend.EntryQuery) (*backend.EntryQueryResult, error) {
	catalog, err := rob.catalog()
	if err != nil {
		return nil, err
	}
	return catalog.QueryEntries(ctx, query)
}

func (rob *ReadOnlyBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	return nil, data.ErrReadOnly
}

func (rob *ReadOnlyBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	storage, err := rob.storage()
	if err != nil {
		return nil, err
	}
	return storage.GetObject(ctx, key)
}

func (rob *ReadOnlyBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	storage, err := rob.storage()
	if err != nil {
		return nil, err
	}
	return storage.HeadObject(ctx, key)
}

func (rob *ReadOnlyBackend) DeleteObject(ctx context.Context, key string) error {
	return data.ErrReadOnly
}
