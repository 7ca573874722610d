package fsdb

import (
	"context"

	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// Scan is the top-level grouping of a database, holding filesets.
type Scan struct {
	entity
}

// Filesets lists the filesets of the scan ordered by ID.
func (s *Scan) Filesets(ctx context.Context) ([]*Fileset, error) {
	entries, err := s.db.listEntries(ctx, s.key)
	if err != nil {
		return nil, err
	}

	filesets := make([]*Fileset, 0, len(entries))
	for _, entry := range entries {
		filesets = append(filesets, s.fileset(entry.Key))
	}

	return filesets, nil
}

// GetFileset returns the fileset with the given ID. A missing fileset is
// created when create is set and fails with ErrNotExist otherwise.
func (s *Scan) GetFileset(ctx context.Context, id string, create bool) (*Fileset, error) {
	if err := s.db.validateID(id); err != nil {
		return nil, err
	}

	key := data.JoinKey(s.key, id)
	exists, err := s.db.existsEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.fileset(key), nil
	}
	if !create {
		return nil, fserrors.EntryNotExist(data.ErrNotExist, key)
	}

	return s.CreateFileset(ctx, id)
}

// CreateFileset creates a new, empty fileset. It fails with ErrExist if
// the scan already holds a fileset with that ID.
func (s *Scan) CreateFileset(ctx context.Context, id string) (*Fileset, error) {
	if err := s.db.validateID(id); err != nil {
		return nil, err
	}

	key := data.JoinKey(s.key, id)
	if err := s.db.createEntry(ctx, key); err != nil {
		return nil, err
	}

	s.db.log.Debug("Created fileset '%s'", key)
	return s.fileset(key), nil
}

// DeleteFileset deletes a fileset with the content of all of its files.
// Content that fails to delete does not stop the fileset from being
// removed; all failures are returned together.
func (s *Scan) DeleteFileset(ctx context.Context, id string) error {
	fileset, err := s.GetFileset(ctx, id, false)
	if err != nil {
		return err
	}

	files, err := fileset.Files(ctx)
	if err != nil {
		return err
	}

	errs := &data.Errors{}
	for _, file := range files {
		errs.Add(file.deleteContent(ctx))
	}
	errs.Add(s.db.deleteEntry(ctx, fileset.Key()))

	if err := errs.Errors(); err != nil {
		return err
	}

	s.db.log.Debug("Deleted fileset '%s'", fileset.Key())
	return nil
}

func (s *Scan) fileset(key string) *Fileset {
	return &Fileset{entity: entity{db: s.db, key: key}}
}
