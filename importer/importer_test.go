package importer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mwantia/fsdb"
	"github.com/mwantia/fsdb/backend/memory"
	"github.com/mwantia/fsdb/data"
	"github.com/mwantia/fsdb/importer"
	"github.com/mwantia/fsdb/log"
)

func newDatabase(t *testing.T) *fsdb.DB {
	t.Helper()

	db, err := fsdb.New(fsdb.WithCatalog(memory.NewMemoryBackend()), fsdb.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := db.Connect(t.Context()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })

	return db
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
}

func TestImportFolder(t *testing.T) {
	ctx := t.Context()
	db := newDatabase(t)

	source := filepath.Join(t.TempDir(), "images")
	writeFiles(t, source, map[string]string{
		"rgb_002.png":      "second",
		"rgb_001.png":      "first",
		"poses.json":       `{"n":2}`,
		".DS_Store":        "hidden",
		"nested/inner.txt": "not imported",
	})

	result, err := importer.NewImporter(db, log.Discard()).ImportFolder(ctx, &importer.Request{
		Source:   source,
		ScanID:   "plant_1",
		Metadata: data.Metadata{"camera": "rgb", "count": json.Number("2")},
	})
	if err != nil {
		t.Fatalf("ImportFolder failed: %v", err)
	}

	if result.ScanID != "plant_1" || result.FilesetID != "images" {
		t.Errorf("Expected plant_1/images, got %s/%s", result.ScanID, result.FilesetID)
	}
	if !reflect.DeepEqual(result.Files, []string{"poses", "rgb_001", "rgb_002"}) {
		t.Errorf("Unexpected imported files: %v", result.Files)
	}
	if !reflect.DeepEqual(result.Skipped, []string{".DS_Store", "nested"}) {
		t.Errorf("Unexpected skipped entries: %v", result.Skipped)
	}
	if result.Size != int64(len("second")+len("first")+len(`{"n":2}`)) {
		t.Errorf("Unexpected size %d", result.Size)
	}

	scan, err := db.GetScan(ctx, "plant_1", false)
	if err != nil {
		t.Fatalf("GetScan failed: %v", err)
	}
	fileset, err := scan.GetFileset(ctx, "images", false)
	if err != nil {
		t.Fatalf("GetFileset failed: %v", err)
	}

	file, err := fileset.GetFile(ctx, "rgb_001", false)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	content, err := file.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if content != "first" {
		t.Errorf("Expected 'first', got %q", content)
	}
	if filename, _ := file.Filename(ctx); filename != "rgb_001.png" {
		t.Errorf("Expected 'rgb_001.png', got %q", filename)
	}

	metadata, err := fileset.Metadata(ctx)
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if !reflect.DeepEqual(metadata, data.Metadata{"camera": "rgb", "count": json.Number("2")}) {
		t.Errorf("Unexpected metadata: %v", metadata)
	}
}

func TestImportFolder_ExistingScan(t *testing.T) {
	ctx := t.Context()
	db := newDatabase(t)

	if _, err := db.CreateScan(ctx, "scan"); err != nil {
		t.Fatalf("CreateScan failed: %v", err)
	}

	source := t.TempDir()
	writeFiles(t, source, map[string]string{"a.txt": "a"})

	im := importer.NewImporter(db, nil)
	req := &importer.Request{Source: source, ScanID: "scan", FilesetID: "first"}
	if _, err := im.ImportFolder(ctx, req); err != nil {
		t.Fatalf("ImportFolder failed: %v", err)
	}

	// A fileset is never imported twice
	if _, err := im.ImportFolder(ctx, req); !errors.Is(err, fsdb.ErrExist) {
		t.Errorf("Expected ErrExist, got %v", err)
	}

	req.FilesetID = "second"
	if _, err := im.ImportFolder(ctx, req); err != nil {
		t.Fatalf("ImportFolder into second fileset failed: %v", err)
	}

	scan, _ := db.GetScan(ctx, "scan", false)
	filesets, err := scan.Filesets(ctx)
	if err != nil {
		t.Fatalf("Filesets failed: %v", err)
	}
	if len(filesets) != 2 {
		t.Errorf("Expected 2 filesets, got %d", len(filesets))
	}
}

func TestImportFolder_Invalid(t *testing.T) {
	ctx := t.Context()
	db := newDatabase(t)
	im := importer.NewImporter(db, nil)

	t.Run("MissingSource", func(t *testing.T) {
		_, err := im.ImportFolder(ctx, &importer.Request{Source: filepath.Join(t.TempDir(), "missing"), ScanID: "scan"})
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("SourceIsFile", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"file.txt": "x"})

		_, err := im.ImportFolder(ctx, &importer.Request{Source: filepath.Join(dir, "file.txt"), ScanID: "scan"})
		if !errors.Is(err, data.ErrInvalid) {
			t.Errorf("Expected ErrInvalid, got %v", err)
		}
	})

	t.Run("InvalidScanID", func(t *testing.T) {
		_, err := im.ImportFolder(ctx, &importer.Request{Source: t.TempDir(), ScanID: "bad id"})
		if !errors.Is(err, fsdb.ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("SharedIdentifier", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"img.png": "a", "img.jpg": "b"})

		_, err := im.ImportFolder(ctx, &importer.Request{Source: dir, ScanID: "scan", FilesetID: "shared"})
		if !errors.Is(err, data.ErrExist) {
			t.Errorf("Expected ErrExist, got %v", err)
		}
		if exists, _ := db.Catalog().ExistsEntry(ctx, "scan/shared"); exists {
			t.Error("Expected no fileset to be created")
		}
	})

	t.Run("InvalidFileID", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"has space.txt": "a"})

		_, err := im.ImportFolder(ctx, &importer.Request{Source: dir, ScanID: "scan", FilesetID: "spaces"})
		if !errors.Is(err, fsdb.ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("InvalidExtension", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"a.txt": "a", "scan.tar gz": "b"})

		_, err := im.ImportFolder(ctx, &importer.Request{Source: dir, ScanID: "scan", FilesetID: "extension"})
		if !errors.Is(err, fsdb.ErrInvalidID) {
			t.Errorf("Expected ErrInvalidID, got %v", err)
		}
		if exists, _ := db.Catalog().ExistsEntry(ctx, "scan/extension"); exists {
			t.Error("Expected no fileset to be created")
		}
		if _, err := db.Storage().HeadObject(ctx, "scan/extension/a.txt"); !errors.Is(err, data.ErrNotExist) {
			t.Errorf("Expected no content to be stored, got %v", err)
		}
	})
}

// failingStorage fails the failAt-th PutObject call.
type failingStorage struct {
	*memory.MemoryBackend

	puts   int
	failAt int
}

func (fs *failingStorage) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	fs.puts++
	if fs.puts == fs.failAt {
		return nil, errStorageFailed
	}
	return fs.MemoryBackend.PutObject(ctx, key, r, size, contentType)
}

// metadataCatalog counts metadata updates reaching the catalog.
type metadataCatalog struct {
	*memory.MemoryBackend

	updates int
}

func (mc *metadataCatalog) UpdateEntry(ctx context.Context, key string, update *data.EntryUpdate) error {
	if update.Has(data.EntryUpdateMetadata) {
		mc.updates++
	}
	return mc.MemoryBackend.UpdateEntry(ctx, key, update)
}

var errStorageFailed = errors.New("storage failed")

func TestImportFolder_Cleanup(t *testing.T) {
	ctx := t.Context()

	catalog := &metadataCatalog{MemoryBackend: memory.NewMemoryBackend()}
	storage := &failingStorage{MemoryBackend: memory.NewMemoryBackend(), failAt: 2}

	db, err := fsdb.New(fsdb.WithCatalog(catalog), fsdb.WithStorage(storage), fsdb.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := db.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })

	source := filepath.Join(t.TempDir(), "broken")
	writeFiles(t, source, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	_, err = importer.NewImporter(db, nil).ImportFolder(ctx, &importer.Request{
		Source:   source,
		ScanID:   "scan",
		Metadata: data.Metadata{"skip": true},
	})
	if !errors.Is(err, errStorageFailed) {
		t.Fatalf("Expected the storage error, got %v", err)
	}

	scan, err := db.GetScan(ctx, "scan", false)
	if err != nil {
		t.Fatalf("Expected scan to remain: %v", err)
	}
	if _, err := scan.GetFileset(ctx, "broken", false); !errors.Is(err, fsdb.ErrNotExist) {
		t.Errorf("Expected fileset to be removed, got %v", err)
	}
	for _, key := range []string{"scan/broken/a.txt", "scan/broken/b.txt"} {
		if _, err := storage.HeadObject(ctx, key); !errors.Is(err, data.ErrNotExist) {
			t.Errorf("Expected '%s' to be removed, got %v", key, err)
		}
	}
	if storage.puts != 2 {
		t.Errorf("Expected the import to stop after 2 puts, got %d", storage.puts)
	}
	if catalog.updates != 0 {
		t.Errorf("Expected no metadata to be attached, got %d updates", catalog.updates)
	}
}
