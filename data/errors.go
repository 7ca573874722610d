package data

import (
	"errors"
	"sync"
)

// Standard errors that backends and the database layer should use.
var (
	// Database lifecycle errors
	ErrNotDatabase  = errors.New("fsdb: not a database")
	ErrNotConnected = errors.New("fsdb: database not connected")
	ErrBusy         = errors.New("fsdb: database is busy")
	ErrNotLocked    = errors.New("fsdb: database lock not held")
	ErrReadOnly     = errors.New("fsdb: database is read-only")

	// Backend errors
	ErrBackendUnsupported = errors.New("fsdb: backend capability unsupported")
	ErrBackendFailed      = errors.New("fsdb: backend failed to open")

	// Entity errors
	ErrInvalidID  = errors.New("fsdb: invalid identifier")
	ErrInvalid    = errors.New("fsdb: invalid argument")
	ErrNotExist   = errors.New("fsdb: entry does not exist")
	ErrExist      = errors.New("fsdb: entry already exists")
	ErrNoContent  = errors.New("fsdb: file has no content")
	ErrTooLarge   = errors.New("fsdb: object exceeds backend size limit")
	ErrPermission = errors.New("fsdb: permission denied")
)

// Errors collects failures of multi-step operations that must not stop
// at the first error, such as cleanup.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
