package fsdb

import (
	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/log"
)

type DatabaseOptions struct {
	Logger        *log.Logger
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool

	Catalog    backend.CatalogBackend
	Storage    backend.StorageBackend
	Initialize bool
	ReadOnly   bool
	Owner      string
}

type DatabaseOption func(*DatabaseOptions) error

func newDefaultDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{
		LogLevel: log.Info,
	}
}

// WithLogger uses an existing logger; the log level and file options are ignored.
func WithLogger(logger *log.Logger) DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.Logger = logger
		return nil
	}
}

func WithLogLevel(logLevel log.LogLevel) DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.LogFile = logFile
		return nil
	}
}

// WithCatalog sets the backend holding scans, filesets, files and metadata.
func WithCatalog(catalog backend.CatalogBackend) DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.Catalog = catalog
		return nil
	}
}

// WithStorage sets the backend holding file content. Without it the
// catalog stores content as well.
func WithStorage(storage backend.StorageBackend) DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.Storage = storage
		return nil
	}
}

// WithInitialize lets Open create a database where none exists yet.
func WithInitialize() DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.Initialize = true
		return nil
	}
}

// WithOwner names the lock owner instead of a generated identifier.
func WithOwner(owner string) DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.Owner = owner
		return nil
	}
}

// WithReadOnly opens the database for reading only. Writes fail with
// ErrReadOnly and the database lock is not taken.
func WithReadOnly() DatabaseOption {
	return func(opts *DatabaseOptions) error {
		opts.ReadOnly = true
		return nil
	}
}
