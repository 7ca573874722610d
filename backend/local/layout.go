package local

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/mwantia/fsdb/data"
)

// Names of the files making up the on-disk layout.
const (
	MarkerFileName   = "romidb"
	LockFileName     = "lock"
	IndexFileName    = "files.json"
	MetadataDirName  = "metadata"
	MetadataFileName = "metadata.json"
)

// scanIndex mirrors "<scan>/files.json".
type scanIndex struct {
	Filesets []*filesetIndex `json:"filesets"`
}

type filesetIndex struct {
	ID    string       `json:"id"`
	Files []*fileIndex `json:"files"`
}

type fileIndex struct {
	ID   string `json:"id"`
	File string `json:"file,omitempty"`
}

func (si *scanIndex) fileset(id string) (int, *filesetIndex) {
	idx := slices.IndexFunc(si.Filesets, func(fi *filesetIndex) bool {
		return fi.ID == id
	})
	if idx < 0 {
		return -1, nil
	}
	return idx, si.Filesets[idx]
}

func (fi *filesetIndex) file(id string) (int, *fileIndex) {
	idx := slices.IndexFunc(fi.Files, func(f *fileIndex) bool {
		return f.ID == id
	})
	if idx < 0 {
		return -1, nil
	}
	return idx, fi.Files[idx]
}

// resolvePath joins the database root with a slash separated key.
func (lb *LocalBackend) resolvePath(key string) string {
	return filepath.Join(lb.path, filepath.FromSlash(key))
}

func (lb *LocalBackend) indexPath(scan string) string {
	return filepath.Join(lb.path, scan, IndexFileName)
}

// metadataPath returns where the metadata of key is kept:
// "<scan>/metadata/metadata.json", "<scan>/metadata/<fileset>.json" or
// "<scan>/metadata/<fileset>/<file>.json".
func (lb *LocalBackend) metadataPath(key string) string {
	ids := data.SplitKey(key)
	dir := filepath.Join(lb.path, ids[0], MetadataDirName)

	switch len(ids) {
	case 1:
		return filepath.Join(dir, MetadataFileName)
	case 2:
		return filepath.Join(dir, ids[1]+".json")
	default:
		return filepath.Join(dir, ids[1], ids[2]+".json")
	}
}

func (lb *LocalBackend) readIndex(scan string) (*scanIndex, error) {
	buf, err := os.ReadFile(lb.indexPath(scan))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// A scan directory without index holds no filesets yet
			if info, statErr := os.Stat(lb.resolvePath(scan)); statErr == nil && info.IsDir() {
				return &scanIndex{Filesets: make([]*filesetIndex, 0)}, nil
			}
			return nil, data.ErrNotExist
		}
		return nil, err
	}

	index := &scanIndex{}
	if err := json.Unmarshal(buf, index); err != nil {
		return nil, err
	}
	if index.Filesets == nil {
		index.Filesets = make([]*filesetIndex, 0)
	}

	return index, nil
}

func (lb *LocalBackend) writeIndex(scan string, index *scanIndex) error {
	for _, fileset := range index.Filesets {
		if fileset.Files == nil {
			fileset.Files = make([]*fileIndex, 0)
		}
	}
	return writeJSON(lb.indexPath(scan), index)
}

func (lb *LocalBackend) readMetadata(key string) (data.Metadata, error) {
	buf, err := os.ReadFile(lb.metadataPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(data.Metadata), nil
		}
		return nil, err
	}

	return data.DecodeMetadata(buf)
}

func (lb *LocalBackend) writeMetadata(key string, md data.Metadata) error {
	path := lb.metadataPath(key)
	if len(md) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	return writeJSON(path, md)
}

// writeJSON replaces path atomically with the indented JSON encoding of v.
func writeJSON(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(buf)
		return err
	})
}

func writeAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".fsdb-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return data.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return data.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return data.ErrPermission
	default:
		return err
	}
}
