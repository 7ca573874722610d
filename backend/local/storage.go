package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mwantia/fsdb/data"
)

func (lb *LocalBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	fullPath := lb.resolvePath(key)

	err := writeAtomic(fullPath, func(f *os.File) error {
		n, err := io.Copy(f, r)
		if err != nil {
			return err
		}
		if size >= 0 && n != size {
			return fmt.Errorf("short object '%s': copied %d of %d bytes: %w", key, n, size, data.ErrInvalid)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return toObjectStat(key, info, contentType), nil
}

func (lb *LocalBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	file, err := os.Open(lb.resolvePath(key))
	if err != nil {
		return nil, mapError(err)
	}

	return file, nil
}

func (lb *LocalBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	info, err := os.Stat(lb.resolvePath(key))
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, data.ErrNotExist
	}

	return toObjectStat(key, info, data.GetMIMEType(key)), nil
}

// DeleteObject removes the object and prunes directories left empty by it,
// stopping at the database root.
func (lb *LocalBackend) DeleteObject(ctx context.Context, key string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	fullPath := lb.resolvePath(key)

	info, err := os.Stat(fullPath)
	if err != nil {
		return mapError(err)
	}
	if info.IsDir() {
		return data.ErrNotExist
	}
	if err := os.Remove(fullPath); err != nil {
		return mapError(err)
	}

	for dir := filepath.Dir(fullPath); dir != lb.path && len(dir) > len(lb.path); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		// Scans and filesets keep their directory while indexed
		if lb.isIndexedUnsafe(dir) {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
	}

	return nil
}

// isIndexedUnsafe reports whether dir is a scan or fileset directory known
// to the catalog.
func (lb *LocalBackend) isIndexedUnsafe(dir string) bool {
	rel, err := filepath.Rel(lb.path, dir)
	if err != nil {
		return false
	}

	_, err = lb.readEntryUnsafe(filepath.ToSlash(rel))
	return err == nil
}

func toObjectStat(key string, info os.FileInfo, contentType data.ContentType) *data.ObjectStat {
	return &data.ObjectStat{
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
		ModifyTime:  info.ModTime(),
	}
}
