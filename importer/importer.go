// Package importer copies a folder of files into a new fileset of a scan.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mwantia/fsdb"
	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
	"github.com/mwantia/fsdb/log"
)

// Importer imports folders into a connected database.
type Importer struct {
	db  *fsdb.DB
	log *log.Logger
}

// Request describes a single folder import.
type Request struct {
	// Source is the folder whose files are imported.
	Source string

	// ScanID names the scan; it is created when missing.
	ScanID string

	// FilesetID names the new fileset (default: basename of Source).
	FilesetID string

	// Metadata is attached to the fileset after all files were imported.
	Metadata data.Metadata
}

// Result summarizes a completed import.
type Result struct {
	ScanID    string
	FilesetID string

	// Files lists the IDs of the imported files in import order.
	Files []string

	// Skipped lists entries of Source that were not imported.
	Skipped []string

	Size     int64
	Duration time.Duration
}

type sourceFile struct {
	id   string
	path string
	size int64
}

func NewImporter(db *fsdb.DB, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Discard()
	}

	return &Importer{
		db:  db,
		log: logger,
	}
}

// ImportFolder imports every regular file directly inside req.Source into
// a new fileset. Files are named after their basename without extension.
// If any file fails, the fileset is deleted again and the error returned.
func (im *Importer) ImportFolder(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if req == nil || req.Source == "" {
		return nil, fmt.Errorf("no source folder defined: %w", data.ErrInvalid)
	}

	filesetID := req.FilesetID
	if filesetID == "" {
		filesetID = filepath.Base(filepath.Clean(req.Source))
	}
	if err := data.ValidateID(filesetID); err != nil {
		return nil, fserrors.InvalidID(err, filesetID)
	}

	files, skipped, err := collectFiles(req.Source)
	if err != nil {
		return nil, err
	}

	scan, err := im.db.GetScan(ctx, req.ScanID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan '%s': %w", req.ScanID, err)
	}

	fileset, err := scan.CreateFileset(ctx, filesetID)
	if err != nil {
		return nil, fmt.Errorf("failed to create fileset '%s': %w", filesetID, err)
	}

	result := &Result{
		ScanID:    scan.ID(),
		FilesetID: fileset.ID(),
		Files:     make([]string, 0, len(files)),
		Skipped:   skipped,
	}

	for _, source := range files {
		if err := im.importFile(ctx, fileset, source); err != nil {
			im.log.Error("Failed to import '%s', removing fileset '%s': %v", source.path, fileset.Key(), err)

			errs := &data.Errors{}
			errs.Add(err)
			if cleanupErr := scan.DeleteFileset(context.WithoutCancel(ctx), fileset.ID()); cleanupErr != nil {
				errs.Add(fmt.Errorf("failed to remove fileset '%s': %w", fileset.Key(), cleanupErr))
			}
			return nil, errs.Errors()
		}

		result.Files = append(result.Files, source.id)
		result.Size += source.size
	}

	if len(req.Metadata) > 0 {
		if err := fileset.SetMetadata(ctx, req.Metadata); err != nil {
			return nil, fmt.Errorf("failed to set metadata of '%s': %w", fileset.Key(), err)
		}
	}

	result.Duration = time.Since(start)
	im.log.Info("Imported %d files (%d bytes) into '%s' in %s", len(result.Files), result.Size, fileset.Key(), result.Duration)

	return result, nil
}

func (im *Importer) importFile(ctx context.Context, fileset *fsdb.Fileset, source *sourceFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := fileset.CreateFile(ctx, source.id)
	if err != nil {
		return err
	}
	if err := file.ImportFile(ctx, source.path); err != nil {
		return err
	}

	im.log.Debug("Imported '%s' as '%s'", source.path, file.Key())
	return nil
}

// collectFiles lists the importable files of dir sorted by name. Hidden
// entries, directories and anything that is not a regular file are skipped.
func collectFiles(dir string) ([]*sourceFile, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source folder: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("'%s' is not a folder: %w", dir, data.ErrInvalid)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	files := make([]*sourceFile, 0, len(entries))
	skipped := make([]string, 0)
	seen := make(map[string]string)

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			skipped = append(skipped, name)
			continue
		}

		path := filepath.Join(dir, name)
		// Stat follows symlinks
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				skipped = append(skipped, name)
				continue
			}
			return nil, nil, fmt.Errorf("failed to stat '%s': %w", path, err)
		}
		if !info.Mode().IsRegular() {
			skipped = append(skipped, name)
			continue
		}

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if err := data.ValidateID(id); err != nil {
			return nil, nil, fmt.Errorf("file '%s': %w", name, fserrors.InvalidID(err, id))
		}
		if _, err := data.Filename(id, filepath.Ext(name)); err != nil {
			return nil, nil, fmt.Errorf("file '%s': %w", name, fserrors.InvalidID(data.ErrInvalidID, name))
		}
		if other, exists := seen[id]; exists {
			return nil, nil, fmt.Errorf("files '%s' and '%s' share the identifier '%s': %w", other, name, id, data.ErrExist)
		}
		seen[id] = name

		files = append(files, &sourceFile{
			id:   id,
			path: path,
			size: info.Size(),
		})
	}

	return files, skipped, nil
}
