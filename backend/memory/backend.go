package memory

import (
	"context"
	"sync"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
	"github.com/tidwall/btree"
)

type memoryObject struct {
	content []byte
	stat    data.ObjectStat
}

// MemoryBackend keeps catalog, objects and lock in process memory. Entries
// live in an ordered B-tree so children of a key form a contiguous range.
type MemoryBackend struct {
	mu sync.RWMutex

	entries *btree.Map[string, *data.Entry]
	objects map[string]*memoryObject

	owner string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: btree.NewMap[string, *data.Entry](0),
		objects: make(map[string]*memoryObject),
	}
}

// Returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when connecting the database.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close keeps the content so a backend can be reconnected within one process.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityCatalog,
			backend.CapabilityStorage,
			backend.CapabilityLock,
		},
		MaxObjectSize: 256 * 1024 * 1024, // 256 MB
	}
}

func (mb *MemoryBackend) Lock(ctx context.Context, owner string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.owner != "" && mb.owner != owner {
		return data.ErrBusy
	}

	mb.owner = owner
	return nil
}

func (mb *MemoryBackend) Unlock(ctx context.Context, owner string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.owner != owner {
		return data.ErrNotLocked
	}

	mb.owner = ""
	return nil
}
