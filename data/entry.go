package data

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the level of an entry in the scan hierarchy.
type Kind int

const (
	KindUnknown Kind = iota
	KindScan
	KindFileset
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return "scan"
	case KindFileset:
		return "fileset"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Entry is the catalog record of a scan, fileset or file.
type Entry struct {
	// Unique identifier assigned by the catalog
	ID string `json:"id"`
	// Hierarchical key: "scan", "scan/fileset" or "scan/fileset/file"
	Key  string `json:"key"`
	Kind Kind   `json:"kind"`

	// Stored object name (file entries only), "<id><ext>"; empty until
	// content has been written.
	Filename    string      `json:"filename,omitempty"`
	Size        int64       `json:"size,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`

	CreateTime time.Time `json:"create_time"`
	ModifyTime time.Time `json:"modify_time"`
}

// NewEntry creates an entry for key with a fresh ID and timestamps.
func NewEntry(key string) *Entry {
	now := time.Now()

	return &Entry{
		ID:         uuid.NewString(),
		Key:        key,
		Kind:       KindOf(key),
		Metadata:   make(Metadata),
		CreateTime: now,
		ModifyTime: now,
	}
}

// Name returns the ID of the entity, the last element of its key.
func (e *Entry) Name() string {
	return BaseID(e.Key)
}

// Parent returns the key of the parent entry.
func (e *Entry) Parent() string {
	return ParentKey(e.Key)
}

// ObjectKey returns the storage key holding the file's bytes, or "" when
// nothing has been written yet.
func (e *Entry) ObjectKey() string {
	if e.Kind != KindFile || e.Filename == "" {
		return ""
	}
	return JoinKey(e.Parent(), e.Filename)
}

// Clone creates a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	clone := *e
	clone.Metadata = e.Metadata.Clone()

	return &clone
}
