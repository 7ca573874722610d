package backend

import "context"

// Backend is used as lifecycle entrypoint for other backend implementations.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open is part of the lifecycle behaviour and gets called when connecting the database.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and gets called when disconnecting the database.
	Close(ctx context.Context) error

	// GetCapabilities returns a list of capabilities supported by this backend.
	GetCapabilities() *BackendCapabilities
}

// Locker guards a database against concurrent writers. Lock fails with
// data.ErrBusy when another owner holds the lock.
type Locker interface {
	Lock(ctx context.Context, owner string) error

	Unlock(ctx context.Context, owner string) error
}
