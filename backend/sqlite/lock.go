package sqlite

import (
	"context"
	"time"

	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// Lock claims the single fsdb_lock row for owner. The row outlives the
// process, so a crashed writer leaves the database locked like a stale
// lock file would.
func (sb *SQLiteBackend) Lock(ctx context.Context, owner string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	result, err := sb.db.ExecContext(ctx, `
		INSERT INTO fsdb_lock (id, owner, acquired_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, owner, time.Now().Unix())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var holder string
	if err := sb.db.QueryRowContext(ctx, "SELECT owner FROM fsdb_lock WHERE id = 1").Scan(&holder); err != nil {
		return err
	}
	if holder == owner {
		return nil
	}

	return fserrors.DatabaseBusy(data.ErrBusy, holder)
}

func (sb *SQLiteBackend) Unlock(ctx context.Context, owner string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	result, err := sb.db.ExecContext(ctx, "DELETE FROM fsdb_lock WHERE id = 1 AND owner = ?", owner)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return data.ErrNotLocked
	}

	return nil
}
