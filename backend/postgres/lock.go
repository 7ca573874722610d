package postgres

import (
	"context"
	"fmt"

	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// lockID is the advisory lock key shared by every fsdb client of a database.
const lockID int64 = 0x66736462 // "fsdb"

func (pb *PostgresBackend) Lock(ctx context.Context, owner string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.lockConn != nil {
		if pb.lockOwner == owner {
			return nil
		}
		return fserrors.DatabaseBusy(data.ErrBusy, pb.lockOwner)
	}

	conn, err := pb.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return fserrors.DatabaseBusy(data.ErrBusy, "")
	}

	pb.lockConn, pb.lockOwner = conn, owner
	return nil
}

func (pb *PostgresBackend) Unlock(ctx context.Context, owner string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.lockConn == nil || pb.lockOwner != owner {
		return data.ErrNotLocked
	}

	conn := pb.lockConn
	pb.lockConn, pb.lockOwner = nil, ""

	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", lockID).Scan(&released); err != nil {
		// Drop the session so the lock cannot linger in the pool
		conn.Hijack().Close(ctx)
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	conn.Release()

	if !released {
		return data.ErrNotLocked
	}

	return nil
}
