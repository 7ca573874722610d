package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/fsdb/data"
)

func (mb *MemoryBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if size >= 0 && int64(len(content)) != size {
		return nil, fmt.Errorf("short object '%s': read %d of %d bytes: %w", key, len(content), size, data.ErrInvalid)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	object := &memoryObject{
		content: content,
		stat: data.ObjectStat{
			Key:         key,
			Size:        int64(len(content)),
			ContentType: contentType,
			ModifyTime:  time.Now(),
		},
	}
	mb.objects[key] = object

	stat := object.stat
	return &stat, nil
}

func (mb *MemoryBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	object, exists := mb.objects[key]
	if !exists {
		return nil, data.ErrNotExist
	}

	// Content is never mutated after PutObject
	return io.NopCloser(bytes.NewReader(object.content)), nil
}

func (mb *MemoryBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	object, exists := mb.objects[key]
	if !exists {
		return nil, data.ErrNotExist
	}

	stat := object.stat
	return &stat, nil
}

func (mb *MemoryBackend) DeleteObject(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.objects[key]; !exists {
		return data.ErrNotExist
	}

	delete(mb.objects, key)
	return nil
}
