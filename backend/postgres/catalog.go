package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

const entryColumns = "id, key, parent, kind, filename, size, content_type, metadata::text, create_time, modify_time"

func (pb *PostgresBackend) CreateEntry(ctx context.Context, entry *data.Entry) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	// Check if key already exists in B-tree
	if _, exists := pb.keys.Get(entry.Key); exists {
		return data.ErrExist
	}

	if entry.ID == "" {
		entry.ID = data.NewEntry(entry.Key).ID
	}
	if entry.CreateTime.IsZero() {
		entry.CreateTime = time.Now()
	}
	if entry.ModifyTime.IsZero() {
		entry.ModifyTime = entry.CreateTime
	}

	metadataJSON, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	_, err = pb.pool.Exec(ctx, `
		INSERT INTO fsdb_entries (id, key, parent, kind, filename, size, content_type, metadata, create_time, modify_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)
	`, entry.ID, entry.Key, entry.Parent(), int(data.KindOf(entry.Key)),
		nullString(entry.Filename), entry.Size, nullString(string(entry.ContentType)), metadataJSON,
		entry.CreateTime.UnixNano(), entry.ModifyTime.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	// Update B-tree
	pb.keys.Set(entry.Key, entry.ID)
	return nil
}

func (pb *PostgresBackend) ReadEntry(ctx context.Context, key string) (*data.Entry, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.readEntryUnsafe(ctx, key)
}

func (pb *PostgresBackend) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	entry, err := pb.readEntryUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if _, err := update.Apply(entry); err != nil {
		return err
	}

	metadataJSON, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	_, err = pb.pool.Exec(ctx, `
		UPDATE fsdb_entries
		SET filename = $1, size = $2, content_type = $3, metadata = $4::jsonb, modify_time = $5
		WHERE id = $6
	`, nullString(entry.Filename), entry.Size, nullString(string(entry.ContentType)), metadataJSON,
		entry.ModifyTime.UnixNano(), entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	return nil
}

func (pb *PostgresBackend) DeleteEntry(ctx context.Context, key string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if _, exists := pb.keys.Get(key); !exists {
		return data.ErrNotExist
	}

	_, err := pb.pool.Exec(ctx, `
		DELETE FROM fsdb_entries WHERE key = $1 OR starts_with(key, $2)
	`, key, key+data.KeySeparator)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	// Remove from B-tree
	keys := []string{key}
	pb.keys.Ascend(key+data.KeySeparator, func(k, _ string) bool {
		if !data.IsDescendantKey(key, k) {
			return false
		}
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		pb.keys.Delete(k)
	}

	return nil
}

func (pb *PostgresBackend) ExistsEntry(ctx context.Context, key string) (bool, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	_, exists := pb.keys.Get(key)
	return exists, nil
}

func (pb *PostgresBackend) QueryEntries(ctx context.Context, query *backend.EntryQuery) (*backend.EntryQueryResult, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	// Build dynamic SQL query
	where := " WHERE 1=1"
	args := []any{}

	if query.Recursive {
		if query.Parent != "" {
			args = append(args, query.Parent+data.KeySeparator)
			where += " AND starts_with(key, $" + strconv.Itoa(len(args)) + ")"
		}
	} else {
		args = append(args, query.Parent)
		where += " AND parent = $" + strconv.Itoa(len(args))
	}

	if query.FilterKind != nil {
		args = append(args, int(*query.FilterKind))
		where += " AND kind = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := pb.pool.QueryRow(ctx, "SELECT COUNT(*) FROM fsdb_entries"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	sqlQuery := "SELECT " + entryColumns + " FROM fsdb_entries" + where + " " + query.SQLOrder()
	// Pagination
	if query.Limit > 0 {
		args = append(args, query.Limit)
		sqlQuery += " LIMIT $" + strconv.Itoa(len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		sqlQuery += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := pb.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	results := make([]*data.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &backend.EntryQueryResult{
		Candidates: results,
		TotalCount: total,
		Paginating: query.Offset+len(results) < total,
	}, nil
}

// readEntryUnsafe reads an entry without acquiring locks.
// MUST be called while holding at least a read lock.
func (pb *PostgresBackend) readEntryUnsafe(ctx context.Context, key string) (*data.Entry, error) {
	// Check B-tree first
	id, exists := pb.keys.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	row := pb.pool.QueryRow(ctx, "SELECT "+entryColumns+" FROM fsdb_entries WHERE id = $1", id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}

	return entry, err
}

func scanEntry(row pgx.Row) (*data.Entry, error) {
	var entry data.Entry
	var parent string
	var kind int
	var filename, contentType, metadataJSON *string
	var createTime, modifyTime int64

	err := row.Scan(&entry.ID, &entry.Key, &parent, &kind,
		&filename, &entry.Size, &contentType, &metadataJSON,
		&createTime, &modifyTime)
	if err != nil {
		return nil, err
	}

	entry.Kind = data.Kind(kind)
	entry.CreateTime = time.Unix(0, createTime)
	entry.ModifyTime = time.Unix(0, modifyTime)

	// Convert nullable fields
	if filename != nil {
		entry.Filename = *filename
	}
	if contentType != nil {
		entry.ContentType = data.ContentType(*contentType)
	}

	entry.Metadata = make(data.Metadata)
	if metadataJSON != nil {
		metadata, err := data.DecodeMetadata([]byte(*metadataJSON))
		if err != nil {
			return nil, err
		}
		entry.Metadata = metadata
	}

	return &entry, nil
}

func encodeMetadata(md data.Metadata) (*string, error) {
	if len(md) == 0 {
		return nil, nil
	}

	buf, err := md.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return nullString(string(buf)), nil
}

// Helper functions for nullable fields

func nullString(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
