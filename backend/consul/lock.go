package consul

import (
	"context"
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// Lock acquires a session lock at "<prefix>lock" whose value names owner.
// The session is invalidated with the client, so crashed owners do not
// keep the database locked.
func (cb *ConsulBackend) Lock(ctx context.Context, owner string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.lock != nil {
		if cb.lockOwner == owner {
			return nil
		}
		return fserrors.DatabaseBusy(data.ErrBusy, cb.lockOwner)
	}

	lockKey := cb.buildKey("lock")
	lock, err := cb.client.LockOpts(&api.LockOptions{
		Key:         lockKey,
		Value:       []byte(owner),
		SessionName: "fsdb",
		LockTryOnce: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create lock: %w", err)
	}

	lost, err := lock.Lock(ctx.Done())
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if lost == nil {
		holder := ""
		if pair, _, err := cb.kv.Get(lockKey, cb.queryOptions(ctx)); err == nil && pair != nil {
			holder = string(pair.Value)
		}
		return fserrors.DatabaseBusy(data.ErrBusy, holder)
	}

	cb.lock, cb.lockOwner = lock, owner
	return nil
}

func (cb *ConsulBackend) Unlock(ctx context.Context, owner string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.lock == nil || cb.lockOwner != owner {
		return data.ErrNotLocked
	}

	lock := cb.lock
	cb.lock, cb.lockOwner = nil, ""

	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
