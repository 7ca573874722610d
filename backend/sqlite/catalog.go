package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

const entryColumns = "id, key, parent, kind, filename, size, content_type, metadata, create_time, modify_time"

type rowScanner interface {
	Scan(dest ...any) error
}

func (sb *SQLiteBackend) CreateEntry(ctx context.Context, entry *data.Entry) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Check if key already exists in B-tree
	if _, exists := sb.keys.Get(entry.Key); exists {
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

	_, err = sb.db.ExecContext(ctx, `
		INSERT INTO fsdb_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Key, entry.Parent(), int(data.KindOf(entry.Key)),
		nullString(entry.Filename), entry.Size, nullString(string(entry.ContentType)), metadataJSON,
		entry.CreateTime.UnixNano(), entry.ModifyTime.UnixNano())
	if err != nil {
		return err
	}

	// Update B-tree
	sb.keys.Set(entry.Key, entry.ID)
	return nil
}

func (sb *SQLiteBackend) ReadEntry(ctx context.Context, key string) (*data.Entry, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.readEntryUnsafe(ctx, key)
}

func (sb *SQLiteBackend) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	entry, err := sb.readEntryUnsafe(ctx, key)
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

	_, err = sb.db.ExecContext(ctx, `
		UPDATE fsdb_entries
		SET filename = ?, size = ?, content_type = ?, metadata = ?, modify_time = ?
		WHERE id = ?
	`, nullString(entry.Filename), entry.Size, nullString(string(entry.ContentType)), metadataJSON,
		entry.ModifyTime.UnixNano(), entry.ID)

	return err
}

func (sb *SQLiteBackend) DeleteEntry(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if _, exists := sb.keys.Get(key); !exists {
		return data.ErrNotExist
	}

	keys := []string{key}
	sb.keys.Ascend(key+data.KeySeparator, func(k, _ string) bool {
		if !data.IsDescendantKey(key, k) {
			return false
		}
		keys = append(keys, k)
		return true
	})

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM fsdb_entries WHERE key = ?", k); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	// Remove from B-tree
	for _, k := range keys {
		sb.keys.Delete(k)
	}
	return nil
}

func (sb *SQLiteBackend) ExistsEntry(ctx context.Context, key string) (bool, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	_, exists := sb.keys.Get(key)
	return exists, nil
}

func (sb *SQLiteBackend) QueryEntries(ctx context.Context, query *backend.EntryQuery) (*backend.EntryQueryResult, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	// Build dynamic SQL query
	where := " WHERE 1=1"
	args := []any{}

	if query.Recursive {
		if query.Parent != "" {
			// instr avoids LIKE, identifiers may contain '_'
			where += " AND instr(key, ?) = 1"
			args = append(args, query.Parent+data.KeySeparator)
		}
	} else {
		where += " AND parent = ?"
		args = append(args, query.Parent)
	}

	if query.FilterKind != nil {
		where += " AND kind = ?"
		args = append(args, int(*query.FilterKind))
	}

	var total int
	if err := sb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fsdb_entries"+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	sqlQuery := "SELECT " + entryColumns + " FROM fsdb_entries" + where + " " + query.SQLOrder()
	// Pagination
	if query.Limit > 0 || query.Offset > 0 {
		limit := -1
		if query.Limit > 0 {
			limit = query.Limit
		}
		sqlQuery += " LIMIT ? OFFSET ?"
		args = append(args, limit, query.Offset)
	}

	rows, err := sb.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
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
func (sb *SQLiteBackend) readEntryUnsafe(ctx context.Context, key string) (*data.Entry, error) {
	// Check B-tree first
	id, exists := sb.keys.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	row := sb.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM fsdb_entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}

	return entry, err
}

func scanEntry(row rowScanner) (*data.Entry, error) {
	var entry data.Entry
	var parent string
	var kind int
	var filename, contentType, metadataJSON sql.NullString
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
	if filename.Valid {
		entry.Filename = filename.String
	}
	if contentType.Valid {
		entry.ContentType = data.ContentType(contentType.String)
	}

	entry.Metadata = make(data.Metadata)
	if metadataJSON.Valid && metadataJSON.String != "" {
		metadata, err := data.DecodeMetadata([]byte(metadataJSON.String))
		if err != nil {
			return nil, err
		}
		entry.Metadata = metadata
	}

	return &entry, nil
}

func encodeMetadata(md data.Metadata) (sql.NullString, error) {
	if len(md) == 0 {
		return sql.NullString{Valid: false}, nil
	}

	buf, err := md.Encode()
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}

// Helper functions for nullable fields

func nullString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: val, Valid: true}
}
