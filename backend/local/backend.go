package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// LocalBackend stores a database as a plain directory tree: a marker file at
// the root, one directory per scan with a files.json index, one directory
// per fileset holding the imported files and JSON metadata files under
// "<scan>/metadata". It serves as catalog, storage and lock at once.
type LocalBackend struct {
	mu   sync.RWMutex
	path string

	initialize bool
}

// NewLocalBackend creates a backend rooted at path. With initialize set,
// Open creates the root directory and marker file when missing.
func NewLocalBackend(path string, initialize bool) *LocalBackend {
	return &LocalBackend{
		path:       filepath.Clean(path),
		initialize: initialize,
	}
}

// Returns the identifier name defined for this backend
func (*LocalBackend) Name() string {
	return "local"
}

// Path returns the database root directory.
func (lb *LocalBackend) Path() string {
	return lb.path
}

// Open verifies that the root is a database directory.
func (lb *LocalBackend) Open(ctx context.Context) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	info, err := os.Stat(lb.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && lb.initialize {
			if err := os.MkdirAll(lb.path, 0755); err != nil {
				return mapError(err)
			}
			info, err = os.Stat(lb.path)
		}
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return data.ErrPermission
			}
			return fmt.Errorf("failed to open '%s': %w", lb.path, data.ErrNotDatabase)
		}
	}

	if !info.IsDir() {
		return fmt.Errorf("'%s' is not a directory: %w", lb.path, data.ErrNotDatabase)
	}

	marker := filepath.Join(lb.path, MarkerFileName)
	if _, err := os.Stat(marker); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return mapError(err)
		}
		if !lb.initialize {
			return fmt.Errorf("'%s' has no '%s' marker: %w", lb.path, MarkerFileName, data.ErrNotDatabase)
		}
		if err := os.WriteFile(marker, nil, 0644); err != nil {
			return mapError(err)
		}
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when disconnecting the database.
func (lb *LocalBackend) Close(ctx context.Context) error {
	// The underlying filesystem persists independently
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (lb *LocalBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityCatalog,
			backend.CapabilityStorage,
			backend.CapabilityLock,
		},
	}
}

// Lock creates the lock file exclusively and records the owner in it.
func (lb *LocalBackend) Lock(ctx context.Context, owner string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	path := filepath.Join(lb.path, LockFileName)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			holder, _ := os.ReadFile(path)
			if string(bytes.TrimSpace(holder)) == owner {
				return nil
			}
			return fserrors.DatabaseBusy(data.ErrBusy, string(bytes.TrimSpace(holder)))
		}
		return mapError(err)
	}

	if _, err := file.WriteString(owner); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}

	return file.Close()
}

// Unlock removes the lock file if owner holds it.
func (lb *LocalBackend) Unlock(ctx context.Context, owner string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	path := filepath.Join(lb.path, LockFileName)

	holder, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return data.ErrNotLocked
		}
		return mapError(err)
	}
	if string(bytes.TrimSpace(holder)) != owner {
		return data.ErrNotLocked
	}

	return mapError(os.Remove(path))
}
