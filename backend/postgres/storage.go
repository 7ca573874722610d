package postgres

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/fsdb/data"
)

func (pb *PostgresBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if size >= 0 && int64(len(content)) != size {
		return nil, fmt.Errorf("short object '%s': read %d of %d bytes: %w", key, len(content), size, data.ErrInvalid)
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()

	sum := sha256.Sum256(content)
	stat := &data.ObjectStat{
		Key:         key,
		Size:        int64(len(content)),
		ContentType: contentType,
		ETag:        hex.EncodeToString(sum[:]),
		ModifyTime:  time.Now(),
	}

	_, err = pb.pool.Exec(ctx, `
		INSERT INTO fsdb_objects (key, content, size, content_type, etag, modify_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			content = EXCLUDED.content,
			size = EXCLUDED.size,
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			modify_time = EXCLUDED.modify_time
	`, key, content, stat.Size, nullString(string(contentType)), stat.ETag, stat.ModifyTime.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return stat, nil
}

func (pb *PostgresBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	var content []byte
	err := pb.pool.QueryRow(ctx, "SELECT content FROM fsdb_objects WHERE key = $1", key).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query object: %w", err)
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (pb *PostgresBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	var contentType, etag *string
	var modifyTime int64
	stat := &data.ObjectStat{Key: key}

	err := pb.pool.QueryRow(ctx, `
		SELECT size, content_type, etag, modify_time FROM fsdb_objects WHERE key = $1
	`, key).Scan(&stat.Size, &contentType, &etag, &modifyTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query object: %w", err)
	}

	stat.ModifyTime = time.Unix(0, modifyTime)
	if contentType != nil {
		stat.ContentType = data.ContentType(*contentType)
	}
	if etag != nil {
		stat.ETag = *etag
	}

	return stat, nil
}

func (pb *PostgresBackend) DeleteObject(ctx context.Context, key string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tag, err := pb.pool.Exec(ctx, "DELETE FROM fsdb_objects WHERE key = $1", key)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrNotExist
	}

	return nil
}
