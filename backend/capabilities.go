package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	CapabilityCatalog BackendCapability = "catalog"
	CapabilityStorage BackendCapability = "storage"
	CapabilityLock    BackendCapability = "lock"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities []BackendCapability `json:"capabilities"`
	// Largest object accepted by PutObject, 0 means unlimited
	MaxObjectSize int64 `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return bc != nil && slices.Contains(bc.Capabilities, cap)
}

// Accepts reports whether an object of size bytes fits the backend.
func (bc *BackendCapabilities) Accepts(size int64) bool {
	return bc == nil || bc.MaxObjectSize <= 0 || size <= bc.MaxObjectSize
}
