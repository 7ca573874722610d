// Package fsdb stores scans, their filesets and the files within them,
// each carrying JSON-compatible metadata. The catalog of entities and the
// file content live in pluggable backends.
package fsdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/backend/readonly"
	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
	"github.com/mwantia/fsdb/log"
)

// DB is a database handle. It must be connected before any scan, fileset
// or file can be accessed, and only one connected handle may write a
// database at a time.
type DB struct {
	mu sync.RWMutex

	catalog backend.CatalogBackend
	storage backend.StorageBackend
	locker  backend.Locker

	owner     string
	connected bool

	log *log.Logger
}

// shutdowner is implemented by backends holding resources beyond a
// connection, such as database pools.
type shutdowner interface {
	Shutdown() error
}

// New creates a database handle over the configured backends.
func New(opts ...DatabaseOption) (*DB, error) {
	options, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	return newDB(options)
}

func applyOptions(opts []DatabaseOption) (*DatabaseOptions, error) {
	options := newDefaultDatabaseOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return options, nil
}

func newDB(options *DatabaseOptions) (*DB, error) {
	if options.Catalog == nil {
		return nil, fmt.Errorf("no catalog backend defined: %w", data.ErrInvalid)
	}
	if !options.Catalog.GetCapabilities().Contains(backend.CapabilityCatalog) {
		return nil, fserrors.BackendUnsupported(data.ErrBackendUnsupported, options.Catalog.Name())
	}

	storage := options.Storage
	if storage == nil {
		catalogStorage, ok := options.Catalog.(backend.StorageBackend)
		if !ok {
			return nil, fserrors.BackendUnsupported(data.ErrBackendUnsupported, options.Catalog.Name())
		}
		storage = catalogStorage
	}
	if !storage.GetCapabilities().Contains(backend.CapabilityStorage) {
		return nil, fserrors.BackendUnsupported(data.ErrBackendUnsupported, storage.Name())
	}

	catalog := options.Catalog
	if options.ReadOnly {
		wrapped := readonly.NewReadOnlyBackend(catalog)
		if backend.Backend(storage) == backend.Backend(catalog) {
			storage = wrapped
		} else {
			storage = readonly.NewReadOnlyBackend(storage)
		}
		catalog = wrapped
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("fsdb", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	owner := options.Owner
	if owner == "" {
		owner = newOwner()
	}

	db := &DB{
		catalog: catalog,
		storage: storage,
		owner:   owner,
		log:     logger,
	}

	// The catalog guards the database; storage only when the catalog cannot
	if locker, ok := catalog.(backend.Locker); ok && catalog.GetCapabilities().Contains(backend.CapabilityLock) {
		db.locker = locker
	} else if locker, ok := storage.(backend.Locker); ok && storage.GetCapabilities().Contains(backend.CapabilityLock) {
		db.locker = locker
	} else if !options.ReadOnly {
		logger.Warn("Backend '%s' cannot lock the database, concurrent writers are not detected", catalog.Name())
	}

	return db, nil
}

func newOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString())
}

// Owner returns the identifier this handle locks the database with.
func (db *DB) Owner() string {
	return db.owner
}

// Catalog returns the backend holding the entity hierarchy.
func (db *DB) Catalog() backend.CatalogBackend {
	return db.catalog
}

// Storage returns the backend holding file content.
func (db *DB) Storage() backend.StorageBackend {
	return db.storage
}

// Connected reports whether Connect succeeded and Disconnect was not called since.
func (db *DB) Connected() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Connect opens the backends and locks the database. It fails with
// ErrBusy while another handle holds the lock.
func (db *DB) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.connected {
		return nil
	}

	if err := db.catalog.Open(ctx); err != nil {
		return fserrors.BackendFailed(fmt.Errorf("%w: %w", data.ErrBackendFailed, err), db.catalog.Name())
	}
	if !db.sharedBackend() {
		if err := db.storage.Open(ctx); err != nil {
			db.catalog.Close(ctx)
			return fserrors.BackendFailed(fmt.Errorf("%w: %w", data.ErrBackendFailed, err), db.storage.Name())
		}
	}

	if db.locker != nil {
		if err := db.locker.Lock(ctx, db.owner); err != nil {
			db.closeBackends(ctx)
			return err
		}
	}

	db.connected = true
	db.log.Debug("Connected to database (catalog: %s, storage: %s)", db.catalog.Name(), db.storage.Name())

	return nil
}

// Disconnect releases the lock and closes the backends.
func (db *DB) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.connected {
		return data.ErrNotConnected
	}

	errs := &data.Errors{}
	if db.locker != nil {
		errs.Add(db.locker.Unlock(ctx, db.owner))
	}
	errs.Add(db.closeBackends(ctx))

	db.connected = false
	db.log.Debug("Disconnected from database")

	return errs.Errors()
}

// Close disconnects a connected handle and releases backend resources for
// good. The handle cannot be reconnected afterwards.
func (db *DB) Close(ctx context.Context) error {
	errs := &data.Errors{}
	if db.Connected() {
		errs.Add(db.Disconnect(ctx))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if s, ok := db.catalog.(shutdowner); ok {
		errs.Add(s.Shutdown())
	}
	if !db.sharedBackend() {
		if s, ok := db.storage.(shutdowner); ok {
			errs.Add(s.Shutdown())
		}
	}

	return errs.Errors()
}

// closeBackends MUST be called while holding the write lock.
func (db *DB) closeBackends(ctx context.Context) error {
	errs := &data.Errors{}
	errs.Add(db.catalog.Close(ctx))
	if !db.sharedBackend() {
		errs.Add(db.storage.Close(ctx))
	}

	return errs.Errors()
}

func (db *DB) sharedBackend() bool {
	storage, ok := db.catalog.(backend.StorageBackend)
	return ok && storage == db.storage
}

func (db *DB) checkConnected() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if !db.connected {
		return data.ErrNotConnected
	}
	return nil
}

// Scans lists every scan ordered by ID.
func (db *DB) Scans(ctx context.Context) ([]*Scan, error) {
	entries, err := db.listEntries(ctx, "")
	if err != nil {
		return nil, err
	}

	scans := make([]*Scan, 0, len(entries))
	for _, entry := range entries {
		scans = append(scans, db.scan(entry.Key))
	}

	return scans, nil
}

// GetScan returns the scan with the given ID. A missing scan is created
// when create is set and fails with ErrNotExist otherwise.
func (db *DB) GetScan(ctx context.Context, id string, create bool) (*Scan, error) {
	if err := db.validateID(id); err != nil {
		return nil, err
	}

	exists, err := db.existsEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return db.scan(id), nil
	}
	if !create {
		return nil, fserrors.EntryNotExist(data.ErrNotExist, id)
	}

	return db.CreateScan(ctx, id)
}

// CreateScan creates a new, empty scan.
func (db *DB) CreateScan(ctx context.Context, id string) (*Scan, error) {
	if err := db.validateID(id); err != nil {
		return nil, err
	}

	if err := db.createEntry(ctx, id); err != nil {
		return nil, err
	}

	db.log.Debug("Created scan '%s'", id)
	return db.scan(id), nil
}

// DeleteScan deletes a scan with all of its filesets.
func (db *DB) DeleteScan(ctx context.Context, id string) error {
	scan, err := db.GetScan(ctx, id, false)
	if err != nil {
		return err
	}

	filesets, err := scan.Filesets(ctx)
	if err != nil {
		return err
	}

	errs := &data.Errors{}
	for _, fileset := range filesets {
		errs.Add(scan.DeleteFileset(ctx, fileset.ID()))
	}
	errs.Add(db.deleteEntry(ctx, scan.Key()))

	if err := errs.Errors(); err != nil {
		return err
	}

	db.log.Debug("Deleted scan '%s'", id)
	return nil
}

func (db *DB) scan(id string) *Scan {
	return &Scan{entity: entity{db: db, key: id}}
}

func (db *DB) validateID(id string) error {
	if err := data.ValidateID(id); err != nil {
		return fserrors.InvalidID(err, id)
	}
	return nil
}

func (db *DB) createEntry(ctx context.Context, key string) error {
	if err := db.checkConnected(); err != nil {
		return err
	}

	if parent := data.ParentKey(key); parent != "" {
		exists, err := db.catalog.ExistsEntry(ctx, parent)
		if err != nil {
			return err
		}
		if !exists {
			return fserrors.EntryNotExist(data.ErrNotExist, parent)
		}
	}

	if err := db.catalog.CreateEntry(ctx, data.NewEntry(key)); err != nil {
		if errors.Is(err, data.ErrExist) {
			return fserrors.EntryExist(err, key)
		}
		return err
	}

	return nil
}

func (db *DB) readEntry(ctx context.Context, key string) (*data.Entry, error) {
	if err := db.checkConnected(); err != nil {
		return nil, err
	}

	entry, err := db.catalog.ReadEntry(ctx, key)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return nil, fserrors.EntryNotExist(err, key)
		}
		return nil, err
	}

	return entry, nil
}

func (db *DB) existsEntry(ctx context.Context, key string) (bool, error) {
	if err := db.checkConnected(); err != nil {
		return false, err
	}

	return db.catalog.ExistsEntry(ctx, key)
}

func (db *DB) updateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	if err := db.checkConnected(); err != nil {
		return err
	}

	if err := db.catalog.UpdateEntry(ctx, key, update); err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return fserrors.EntryNotExist(err, key)
		}
		return err
	}

	return nil
}

func (db *DB) deleteEntry(ctx context.Context, key string) error {
	if err := db.checkConnected(); err != nil {
		return err
	}

	if err := db.catalog.DeleteEntry(ctx, key); err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return fserrors.EntryNotExist(err, key)
		}
		return err
	}

	return nil
}

// listEntries returns the immediate children of parent ordered by key.
func (db *DB) listEntries(ctx context.Context, parent string) ([]*data.Entry, error) {
	if parent != "" {
		exists, err := db.existsEntry(ctx, parent)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fserrors.EntryNotExist(data.ErrNotExist, parent)
		}
	} else if err := db.checkConnected(); err != nil {
		return nil, err
	}

	result, err := db.catalog.QueryEntries(ctx, &backend.EntryQuery{
		Parent:    parent,
		SortBy:    backend.SortByKey,
		SortOrder: backend.SortAsc,
	})
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return nil, fserrors.EntryNotExist(err, parent)
		}
		return nil, err
	}

	return result.Candidates, nil
}
