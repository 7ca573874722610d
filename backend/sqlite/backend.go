package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/mwantia/fsdb/backend"
	"github.com/tidwall/btree"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend keeps a whole database in a single SQLite file:
//
// Layer 1: In-memory B-tree for fast key → ID lookups (keys map)
// Layer 2: SQLite entry table (fsdb_entries) for the scan hierarchy and metadata
// Layer 3: SQLite object table (fsdb_objects) for file content
//
// A single row table (fsdb_lock) records the owner of the database lock.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	// In-memory B-tree for fast key lookups
	keys *btree.Map[string, string]
}

// NewSQLiteBackend creates a new SQLite-backed backend.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db:   db,
		keys: btree.NewMap[string, string](0),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	-- Scan, fileset and file entries
	CREATE TABLE IF NOT EXISTS fsdb_entries (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		parent TEXT NOT NULL,
		kind INTEGER NOT NULL,
		filename TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		content_type TEXT,
		metadata TEXT,
		create_time INTEGER NOT NULL,
		modify_time INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fsdb_entries_parent ON fsdb_entries(parent);

	-- File content
	CREATE TABLE IF NOT EXISTS fsdb_objects (
		key TEXT PRIMARY KEY,
		content BLOB NOT NULL,
		size INTEGER NOT NULL CHECK(size >= 0),
		content_type TEXT,
		etag TEXT,
		modify_time INTEGER NOT NULL
	);

	-- Database lock
	CREATE TABLE IF NOT EXISTS fsdb_lock (
		id INTEGER PRIMARY KEY CHECK(id = 1),
		owner TEXT NOT NULL,
		acquired_at INTEGER NOT NULL
	);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open verifies the connection and loads all keys into the B-tree.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if err := sb.db.PingContext(ctx); err != nil {
		return err
	}

	rows, err := sb.db.QueryContext(ctx, "SELECT key, id FROM fsdb_entries")
	if err != nil {
		return err
	}
	defer rows.Close()

	sb.keys.Clear()
	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return err
		}
		sb.keys.Set(key, id)
	}

	return rows.Err()
}

// Close keeps the connection so a disconnected database can be reconnected;
// Shutdown releases it for good.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.keys.Clear()
	return nil
}

// Shutdown closes the underlying database handle.
func (sb *SQLiteBackend) Shutdown() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityCatalog,
			backend.CapabilityStorage,
			backend.CapabilityLock,
		},
		// SQLITE_MAX_LENGTH defaults to one billion bytes per blob
		MaxObjectSize: 1_000_000_000,
	}
}
