package fsdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mwantia/fsdb/data"
	fserrors "github.com/mwantia/fsdb/data/errors"
)

// File is a single stored file within a fileset. Its content is kept as
// "<id><ext>" next to the other files of the fileset.
type File struct {
	entity
}

// Fileset returns the fileset the file belongs to.
func (f *File) Fileset() *Fileset {
	parent := data.ParentKey(f.key)
	return f.db.scan(data.ParentKey(parent)).fileset(parent)
}

// Filename returns the name the content is stored under, or "" if nothing
// has been written yet.
func (f *File) Filename(ctx context.Context) (string, error) {
	entry, err := f.db.readEntry(ctx, f.key)
	if err != nil {
		return "", err
	}
	return entry.Filename, nil
}

// ImportFile copies the content of the regular file at path. The stored
// name keeps the extension of path.
func (f *File) ImportFile(ctx context.Context, path string) error {
	source, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("'%s' is not a regular file: %w", path, data.ErrInvalid)
	}

	return f.writeContent(ctx, source, info.Size(), filepath.Ext(path))
}

// Write stores text as the content of the file. The extension may be
// given with or without leading dot and defaults to "txt".
func (f *File) Write(ctx context.Context, text string, ext string) error {
	if ext == "" {
		ext = "txt"
	}
	return f.WriteRaw(ctx, []byte(text), ext)
}

// WriteRaw stores buf as the content of the file.
func (f *File) WriteRaw(ctx context.Context, buf []byte, ext string) error {
	return f.writeContent(ctx, bytes.NewReader(buf), int64(len(buf)), ext)
}

// Read returns the content as text.
func (f *File) Read(ctx context.Context) (string, error) {
	buf, err := f.ReadRaw(ctx)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadRaw returns the content. It fails with ErrNoContent if nothing has
// been written yet.
func (f *File) ReadRaw(ctx context.Context) ([]byte, error) {
	reader, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// Open returns a reader over the content; the caller must close it.
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	entry, err := f.db.readEntry(ctx, f.key)
	if err != nil {
		return nil, err
	}

	objectKey := entry.ObjectKey()
	if objectKey == "" {
		return nil, fmt.Errorf("file '%s': %w", f.key, data.ErrNoContent)
	}

	reader, err := f.db.storage.GetObject(ctx, objectKey)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return nil, fserrors.ObjectNotExist(err, objectKey)
		}
		return nil, err
	}

	return reader, nil
}

func (f *File) writeContent(ctx context.Context, r io.Reader, size int64, ext string) error {
	entry, err := f.db.readEntry(ctx, f.key)
	if err != nil {
		return err
	}

	filename, err := data.Filename(f.ID(), ext)
	if err != nil {
		return fmt.Errorf("invalid extension '%s' for file '%s': %w", ext, f.key, err)
	}

	if !f.db.storage.GetCapabilities().Accepts(size) {
		return fmt.Errorf("file '%s' of %d bytes: %w", f.key, size, data.ErrTooLarge)
	}

	// "a" with extension "b" and "a.b" without one map to the same object
	siblings, err := f.db.listEntries(ctx, entry.Parent())
	if err != nil {
		return err
	}
	for _, sibling := range siblings {
		if sibling.Key != f.key && sibling.Filename == filename {
			return fmt.Errorf("content '%s' of file '%s' is owned by '%s': %w", filename, f.key, sibling.Key, data.ErrExist)
		}
	}

	contentType := data.GetMIMEType(filename)
	objectKey := data.JoinKey(entry.Parent(), filename)

	stat, err := f.db.storage.PutObject(ctx, objectKey, r, size, contentType)
	if err != nil {
		return fmt.Errorf("failed to store '%s': %w", objectKey, err)
	}

	// Content written under another extension before is replaced
	if previous := entry.ObjectKey(); previous != "" && previous != objectKey {
		if err := f.db.storage.DeleteObject(ctx, previous); err != nil && !errors.Is(err, data.ErrNotExist) {
			f.db.log.Warn("Failed to remove previous content '%s': %v", previous, err)
		}
	}

	return f.db.updateEntry(ctx, f.key, &data.EntryUpdate{
		Mask: data.EntryUpdateContent,
		Entry: &data.Entry{
			Filename:    filename,
			Size:        stat.Size,
			ContentType: contentType,
		},
	})
}

// deleteContent removes the stored content, if any.
func (f *File) deleteContent(ctx context.Context) error {
	entry, err := f.db.readEntry(ctx, f.key)
	if err != nil {
		return err
	}

	objectKey := entry.ObjectKey()
	if objectKey == "" {
		return nil
	}

	if err := f.db.storage.DeleteObject(ctx, objectKey); err != nil && !errors.Is(err, data.ErrNotExist) {
		return fmt.Errorf("failed to delete '%s': %w", objectKey, err)
	}
	return nil
}
