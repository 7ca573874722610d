package consul

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

// entryFileName cannot collide with an identifier, those never start with a dot.
const entryFileName = ".entry"

func (cb *ConsulBackend) CreateEntry(ctx context.Context, entry *data.Entry) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	clone := entry.Clone()
	if clone.ID == "" {
		clone.ID = data.NewEntry(clone.Key).ID
	}
	if clone.Metadata == nil {
		clone.Metadata = make(data.Metadata)
	}
	if clone.CreateTime.IsZero() {
		clone.CreateTime = time.Now()
	}
	if clone.ModifyTime.IsZero() {
		clone.ModifyTime = clone.CreateTime
	}

	value, err := json.Marshal(clone)
	if err != nil {
		return err
	}

	// A zero ModifyIndex only succeeds if the key does not exist yet
	pair := &api.KVPair{
		Key:         cb.entryKey(entry.Key),
		Value:       value,
		ModifyIndex: 0,
	}
	ok, _, err := cb.kv.CAS(pair, cb.writeOptions(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return data.ErrExist
	}

	return nil
}

func (cb *ConsulBackend) ReadEntry(ctx context.Context, key string) (*data.Entry, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	entry, _, err := cb.readEntryUnsafe(ctx, key)
	return entry, err
}

func (cb *ConsulBackend) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	entry, index, err := cb.readEntryUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if _, err := update.Apply(entry); err != nil {
		return err
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pair := &api.KVPair{
		Key:         cb.entryKey(key),
		Value:       value,
		ModifyIndex: index,
	}
	ok, _, err := cb.kv.CAS(pair, cb.writeOptions(ctx))
	if err != nil {
		return err
	}
	if !ok {
		// Deleted or rewritten by another client in between
		return data.ErrNotExist
	}

	return nil
}

func (cb *ConsulBackend) DeleteEntry(ctx context.Context, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if _, _, err := cb.readEntryUnsafe(ctx, key); err != nil {
		return err
	}

	_, err := cb.kv.DeleteTree(cb.treeKey(key), cb.writeOptions(ctx))
	return err
}

func (cb *ConsulBackend) ExistsEntry(ctx context.Context, key string) (bool, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair, _, err := cb.kv.Get(cb.entryKey(key), cb.queryOptions(ctx))
	if err != nil {
		return false, err
	}
	return pair != nil, nil
}

func (cb *ConsulBackend) QueryEntries(ctx context.Context, query *backend.EntryQuery) (*backend.EntryQueryResult, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	prefix := cb.treeKey(query.Parent)
	candidates := make([]*data.Entry, 0)

	if query.Recursive {
		pairs, _, err := cb.kv.List(prefix, cb.queryOptions(ctx))
		if err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			if !strings.HasSuffix(pair.Key, "/"+entryFileName) || pair.Key == prefix+entryFileName {
				continue
			}
			entry, err := decodeEntry(pair.Value)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, entry)
		}
	} else {
		// With a separator Consul folds every child subtree into "<child>/"
		keys, _, err := cb.kv.Keys(prefix, "/", cb.queryOptions(ctx))
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if !strings.HasSuffix(k, "/") {
				continue
			}
			id := strings.TrimSuffix(strings.TrimPrefix(k, prefix), "/")
			entry, _, err := cb.readEntryUnsafe(ctx, data.JoinKey(query.Parent, id))
			if err != nil {
				// Subtree without an entry document of its own
				continue
			}
			candidates = append(candidates, entry)
		}
	}

	return backend.ApplyQuery(candidates, query), nil
}

// readEntryUnsafe reads an entry and its modify index without acquiring locks.
// MUST be called while holding at least a read lock.
func (cb *ConsulBackend) readEntryUnsafe(ctx context.Context, key string) (*data.Entry, uint64, error) {
	pair, _, err := cb.kv.Get(cb.entryKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, 0, err
	}
	if pair == nil {
		return nil, 0, data.ErrNotExist
	}

	entry, err := decodeEntry(pair.Value)
	if err != nil {
		return nil, 0, err
	}

	return entry, pair.ModifyIndex, nil
}

func decodeEntry(value []byte) (*data.Entry, error) {
	decoder := json.NewDecoder(bytes.NewReader(value))
	// Keep metadata numbers as json.Number
	decoder.UseNumber()

	var entry data.Entry
	if err := decoder.Decode(&entry); err != nil {
		return nil, err
	}
	if entry.Metadata == nil {
		entry.Metadata = make(data.Metadata)
	}

	return &entry, nil
}
