package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

func (lb *LocalBackend) CreateEntry(ctx context.Context, entry *data.Entry) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if err := data.ValidateKey(entry.Key); err != nil {
		return err
	}
	ids := data.SplitKey(entry.Key)

	switch data.KindOf(entry.Key) {
	case data.KindScan:
		if err := os.Mkdir(lb.resolvePath(entry.Key), 0755); err != nil {
			return mapError(err)
		}
		if err := lb.writeIndex(ids[0], &scanIndex{}); err != nil {
			return err
		}

	case data.KindFileset:
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return err
		}
		if _, fileset := index.fileset(ids[1]); fileset != nil {
			return data.ErrExist
		}
		if err := os.MkdirAll(lb.resolvePath(entry.Key), 0755); err != nil {
			return mapError(err)
		}

		index.Filesets = append(index.Filesets, &filesetIndex{ID: ids[1]})
		if err := lb.writeIndex(ids[0], index); err != nil {
			return err
		}

	case data.KindFile:
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return err
		}
		_, fileset := index.fileset(ids[1])
		if fileset == nil {
			return data.ErrNotExist
		}
		if _, file := fileset.file(ids[2]); file != nil {
			return data.ErrExist
		}

		fileset.Files = append(fileset.Files, &fileIndex{ID: ids[2], File: entry.Filename})
		if err := lb.writeIndex(ids[0], index); err != nil {
			return err
		}
	}

	return lb.writeMetadata(entry.Key, entry.Metadata)
}

func (lb *LocalBackend) ReadEntry(ctx context.Context, key string) (*data.Entry, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	return lb.readEntryUnsafe(key)
}

func (lb *LocalBackend) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	entry, err := lb.readEntryUnsafe(key)
	if err != nil {
		return err
	}

	previous := entry.Filename
	if _, err := update.Apply(entry); err != nil {
		return err
	}

	if entry.Kind == data.KindFile && update.Has(data.EntryUpdateFilename) && entry.Filename != previous {
		ids := data.SplitKey(key)
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return err
		}
		_, fileset := index.fileset(ids[1])
		if fileset == nil {
			return data.ErrNotExist
		}
		_, file := fileset.file(ids[2])
		if file == nil {
			return data.ErrNotExist
		}

		file.File = entry.Filename
		if err := lb.writeIndex(ids[0], index); err != nil {
			return err
		}
	}

	if update.Has(data.EntryUpdateMetadata) {
		return lb.writeMetadata(key, entry.Metadata)
	}

	return nil
}

func (lb *LocalBackend) DeleteEntry(ctx context.Context, key string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if _, err := lb.readEntryUnsafe(key); err != nil {
		return err
	}

	ids := data.SplitKey(key)

	switch len(ids) {
	case 1:
		return mapError(os.RemoveAll(lb.resolvePath(key)))

	case 2:
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return err
		}
		idx, _ := index.fileset(ids[1])
		index.Filesets = slices.Delete(index.Filesets, idx, idx+1)
		if err := lb.writeIndex(ids[0], index); err != nil {
			return err
		}

		errs := &data.Errors{}
		errs.Add(os.RemoveAll(lb.resolvePath(key)))
		errs.Add(os.RemoveAll(filepath.Join(lb.resolvePath(ids[0]), MetadataDirName, ids[1])))
		errs.Add(removeIfExists(lb.metadataPath(key)))
		return errs.Errors()

	default:
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return err
		}
		_, fileset := index.fileset(ids[1])
		idx, _ := fileset.file(ids[2])
		fileset.Files = slices.Delete(fileset.Files, idx, idx+1)
		if err := lb.writeIndex(ids[0], index); err != nil {
			return err
		}

		return removeIfExists(lb.metadataPath(key))
	}
}

func (lb *LocalBackend) ExistsEntry(ctx context.Context, key string) (bool, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	_, err := lb.readEntryUnsafe(key)
	if errors.Is(err, data.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (lb *LocalBackend) QueryEntries(ctx context.Context, query *backend.EntryQuery) (*backend.EntryQueryResult, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	keys, err := lb.collectKeysUnsafe(query.Parent, query.Recursive)
	if err != nil {
		return nil, err
	}

	candidates := make([]*data.Entry, 0, len(keys))
	for _, key := range keys {
		if !query.Matches(key, data.KindOf(key)) {
			continue
		}
		entry, err := lb.readEntryUnsafe(key)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, entry)
	}

	return backend.ApplyQuery(candidates, query), nil
}

// readEntryUnsafe reads an entry without acquiring locks.
// MUST be called while holding at least a read lock.
func (lb *LocalBackend) readEntryUnsafe(key string) (*data.Entry, error) {
	if err := data.ValidateKey(key); err != nil {
		return nil, err
	}

	ids := data.SplitKey(key)
	entry := &data.Entry{
		ID:   key,
		Key:  key,
		Kind: data.KindOf(key),
	}

	switch entry.Kind {
	case data.KindScan:
		info, err := os.Stat(lb.resolvePath(key))
		if err != nil {
			return nil, mapError(err)
		}
		if !info.IsDir() {
			return nil, data.ErrNotExist
		}
		entry.CreateTime, entry.ModifyTime = info.ModTime(), info.ModTime()

	case data.KindFileset:
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return nil, err
		}
		if _, fileset := index.fileset(ids[1]); fileset == nil {
			return nil, data.ErrNotExist
		}
		if info, err := os.Stat(lb.resolvePath(key)); err == nil {
			entry.CreateTime, entry.ModifyTime = info.ModTime(), info.ModTime()
		}

	case data.KindFile:
		index, err := lb.readIndex(ids[0])
		if err != nil {
			return nil, err
		}
		_, fileset := index.fileset(ids[1])
		if fileset == nil {
			return nil, data.ErrNotExist
		}
		_, file := fileset.file(ids[2])
		if file == nil {
			return nil, data.ErrNotExist
		}

		entry.Filename = file.File
		if entry.Filename != "" {
			entry.ContentType = data.GetMIMEType(entry.Filename)
			if info, err := os.Stat(lb.resolvePath(entry.ObjectKey())); err == nil {
				entry.Size = info.Size()
				entry.CreateTime, entry.ModifyTime = info.ModTime(), info.ModTime()
			}
		}
	}

	metadata, err := lb.readMetadata(key)
	if err != nil {
		return nil, err
	}
	entry.Metadata = metadata

	return entry, nil
}

// collectKeysUnsafe lists the keys below parent, descending into filesets
// and files only when recursive is set or parent already names a scan.
// MUST be called while holding at least a read lock.
func (lb *LocalBackend) collectKeysUnsafe(parent string, recursive bool) ([]string, error) {
	var scans []string
	if parent == "" {
		dirEntries, err := os.ReadDir(lb.path)
		if err != nil {
			return nil, mapError(err)
		}
		for _, dirEntry := range dirEntries {
			if dirEntry.IsDir() && data.ValidateID(dirEntry.Name()) == nil {
				scans = append(scans, dirEntry.Name())
			}
		}
		if !recursive {
			return scans, nil
		}
	} else {
		if _, err := lb.readEntryUnsafe(parent); err != nil {
			return nil, err
		}
		if data.KindOf(parent) == data.KindFile {
			return nil, nil
		}
		scans = []string{data.SplitKey(parent)[0]}
	}

	keys := make([]string, 0)
	for _, scan := range scans {
		if parent == "" {
			keys = append(keys, scan)
		}

		index, err := lb.readIndex(scan)
		if err != nil {
			if errors.Is(err, data.ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		for _, fileset := range index.Filesets {
			filesetKey := data.JoinKey(scan, fileset.ID)
			keys = append(keys, filesetKey)
			for _, file := range fileset.Files {
				keys = append(keys, data.JoinKey(filesetKey, file.ID))
			}
		}
	}

	return keys, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
