package consul

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/fsdb/data"
)

func (cb *ConsulBackend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if size >= 0 && int64(len(content)) != size {
		return nil, fmt.Errorf("short object '%s': read %d of %d bytes: %w", key, len(content), size, data.ErrInvalid)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair := &api.KVPair{
		Key:   cb.objectKey(key),
		Value: content,
	}
	if _, err := cb.kv.Put(pair, cb.writeOptions(ctx)); err != nil {
		return nil, err
	}

	return &data.ObjectStat{
		Key:         key,
		Size:        int64(len(content)),
		ContentType: contentType,
		ModifyTime:  time.Now(),
	}, nil
}

func (cb *ConsulBackend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair, _, err := cb.kv.Get(cb.objectKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, data.ErrNotExist
	}

	return io.NopCloser(bytes.NewReader(pair.Value)), nil
}

// HeadObject reports the KV modify index as ETag; Consul keeps no timestamps.
func (cb *ConsulBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair, _, err := cb.kv.Get(cb.objectKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, data.ErrNotExist
	}

	return &data.ObjectStat{
		Key:         key,
		Size:        int64(len(pair.Value)),
		ContentType: data.GetMIMEType(key),
		ETag:        strconv.FormatUint(pair.ModifyIndex, 10),
	}, nil
}

func (cb *ConsulBackend) DeleteObject(ctx context.Context, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	objectKey := cb.objectKey(key)

	pair, _, err := cb.kv.Get(objectKey, cb.queryOptions(ctx))
	if err != nil {
		return err
	}
	if pair == nil {
		return data.ErrNotExist
	}

	_, err = cb.kv.Delete(objectKey, cb.writeOptions(ctx))
	return err
}
