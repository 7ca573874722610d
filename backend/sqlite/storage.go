package sqlite

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/fsdb/data"
)

func (sb *SQLiteBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if size >= 0 && int64(len(content)) != size {
		return nil, fmt.Errorf("short object '%s': read %d of %d bytes: %w", key, len(content), size, data.ErrInvalid)
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	sum := sha256.Sum256(content)
	stat := &data.ObjectStat{
		Key:         key,
		Size:        int64(len(content)),
		ContentType: contentType,
		ETag:        hex.EncodeToString(sum[:]),
		ModifyTime:  time.Now(),
	}

	_, err = sb.db.ExecContext(ctx, `
		INSERT INTO fsdb_objects (key, content, size, content_type, etag, modify_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			content_type = excluded.content_type,
			etag = excluded.etag,
			modify_time = excluded.modify_time
	`, key, content, stat.Size, nullString(string(contentType)), stat.ETag, stat.ModifyTime.UnixNano())
	if err != nil {
		return nil, err
	}

	return stat, nil
}

func (sb *SQLiteBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var content []byte
	err := sb.db.QueryRowContext(ctx, "SELECT content FROM fsdb_objects WHERE key = ?", key).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (sb *SQLiteBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var contentType, etag sql.NullString
	var modifyTime int64
	stat := &data.ObjectStat{Key: key}

	err := sb.db.QueryRowContext(ctx, `
		SELECT size, content_type, etag, modify_time FROM fsdb_objects WHERE key = ?
	`, key).Scan(&stat.Size, &contentType, &etag, &modifyTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	stat.ModifyTime = time.Unix(0, modifyTime)
	if contentType.Valid {
		stat.ContentType = data.ContentType(contentType.String)
	}
	if etag.Valid {
		stat.ETag = etag.String
	}

	return stat, nil
}

func (sb *SQLiteBackend) DeleteObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	result, err := sb.db.ExecContext(ctx, "DELETE FROM fsdb_objects WHERE key = ?", key)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return data.ErrNotExist
	}

	return nil
}
