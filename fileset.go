package fsdb

import (
	"context"

	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// Fileset is a named collection of files within a scan.
type Fileset struct {
	entity
}

// Scan returns the scan the fileset belongs to.
func (fs *Fileset) Scan() *Scan {
	return fs.db.scan(data.ParentKey(fs.key))
}

// Files lists the files of the fileset ordered by ID.
func (fs *Fileset) Files(ctx context.Context) ([]*File, error) {
	entries, err := fs.db.listEntries(ctx, fs.key)
	if err != nil {
		return nil, err
	}

	files := make([]*File, 0, len(entries))
	for _, entry := range entries {
		files = append(files, fs.file(entry.Key))
	}

	return files, nil
}

// GetFile returns the file with the given ID. A missing file is created
// when create is set and fails with ErrNotExist otherwise.
func (fs *Fileset) GetFile(ctx context.Context, id string, create bool) (*File, error) {
	if err := fs.db.validateID(id); err != nil {
		return nil, err
	}

	key := data.JoinKey(fs.key, id)
	exists, err := fs.db.existsEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return fs.file(key), nil
	}
	if !create {
		return nil, fserrors.EntryNotExist(data.ErrNotExist, key)
	}

	return fs.CreateFile(ctx, id)
}

// CreateFile creates a file entry without content.
func (fs *Fileset) CreateFile(ctx context.Context, id string) (*File, error) {
	if err := fs.db.validateID(id); err != nil {
		return nil, err
	}

	key := data.JoinKey(fs.key, id)
	if err := fs.db.createEntry(ctx, key); err != nil {
		return nil, err
	}

	return fs.file(key), nil
}

// DeleteFile deletes a file entry together with its content.
func (fs *Fileset) DeleteFile(ctx context.Context, id string) error {
	file, err := fs.GetFile(ctx, id, false)
	if err != nil {
		return err
	}

	errs := &data.Errors{}
	errs.Add(file.deleteContent(ctx))
	errs.Add(fs.db.deleteEntry(ctx, file.Key()))

	return errs.Errors()
}

func (fs *Fileset) file(key string) *File {
	return &File{entity: entity{db: fs.db, key: key}}
}
