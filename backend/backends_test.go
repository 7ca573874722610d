package backend_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/backend/consul"
	"github.com/mwantia/fsdb/backend/local"
	"github.com/mwantia/fsdb/backend/memory"
	"github.com/mwantia/fsdb/backend/postgres"
	"github.com/mwantia/fsdb/backend/sqlite"
	"github.com/mwantia/fsdb/data"
)

// testBackend is what every full backend implements.
type testBackend interface {
	backend.CatalogBackend
	backend.StorageBackend
	backend.Locker
}

// TestBackendFactory creates a new, opened backend instance for testing.
type TestBackendFactory func(t *testing.T) (testBackend, error)

// GetTestBackendFactories returns all backend implementations to test.
// Network backends join when their FSDB_TEST_* variable names an address.
func GetTestBackendFactories() map[string]TestBackendFactory {
	factories := map[string]TestBackendFactory{
		"memory": func(t *testing.T) (testBackend, error) {
			return openBackend(t, memory.NewMemoryBackend())
		},
		"sqlite": func(t *testing.T) (testBackend, error) {
			b, err := sqlite.NewSQLiteBackend(":memory:")
			if err != nil {
				return nil, err
			}
			t.Cleanup(func() { b.Shutdown() })
			return openBackend(t, b)
		},
		"local": func(t *testing.T) (testBackend, error) {
			return openBackend(t, local.NewLocalBackend(t.TempDir(), true))
		},
	}

	if address := os.Getenv("FSDB_TEST_POSTGRES"); address != "" {
		factories["postgres"] = func(t *testing.T) (testBackend, error) {
			b, err := postgres.NewPostgresBackend(address)
			if err != nil {
				return nil, err
			}
			t.Cleanup(func() { b.Shutdown() })
			return resetBackend(t, b)
		}
	}

	if address := os.Getenv("FSDB_TEST_CONSUL"); address != "" {
		factories["consul"] = func(t *testing.T) (testBackend, error) {
			b, err := consul.NewConsulBackend(&consul.ConsulBackendConfig{
				Address: address,
				Prefix:  "fsdb-test/",
			})
			if err != nil {
				return nil, err
			}
			return resetBackend(t, b)
		}
	}

	return factories
}

func openBackend(t *testing.T, b testBackend) (testBackend, error) {
	if err := b.Open(t.Context()); err != nil {
		return nil, err
	}
	t.Cleanup(func() { b.Close(context.Background()) })

	return b, nil
}

// resetBackend removes scans left over by earlier runs against shared servers.
func resetBackend(t *testing.T, b testBackend) (testBackend, error) {
	if _, err := openBackend(t, b); err != nil {
		return nil, err
	}

	result, err := b.QueryEntries(t.Context(), &backend.EntryQuery{})
	if err != nil {
		return nil, err
	}
	for _, entry := range result.Candidates {
		if err := b.DeleteEntry(t.Context(), entry.Key); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func createEntries(t *testing.T, b testBackend, keys ...string) {
	t.Helper()

	for _, key := range keys {
		if err := b.CreateEntry(t.Context(), data.NewEntry(key)); err != nil {
			t.Fatalf("CreateEntry(%q) failed: %v", key, err)
		}
	}
}

func entryKeys(entries []*data.Entry) []string {
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// TestAllBackends_EntryOperations verifies create, read, exists and
// duplicate detection across all backend implementations.
func TestAllBackends_EntryOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			b, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			createEntries(tst, b, "scan1", "scan1/images", "scan1/images/rgb_001")

			entry, err := b.ReadEntry(ctx, "scan1/images")
			if err != nil {
				tst.Fatalf("ReadEntry failed: %v", err)
			}
			if entry.Key != "scan1/images" || entry.Kind != data.KindFileset {
				tst.Errorf("Expected fileset 'scan1/images', got %q (%s)", entry.Key, entry.Kind)
			}
			if entry.ID == "" {
				tst.Error("Expected entry to carry an ID")
			}

			exists, err := b.ExistsEntry(ctx, "scan1/images/rgb_001")
			if err != nil || !exists {
				tst.Errorf("Expected file entry to exist, got %v (%v)", exists, err)
			}

			exists, err = b.ExistsEntry(ctx, "scan1/missing")
			if err != nil || exists {
				tst.Errorf("Expected missing entry, got %v (%v)", exists, err)
			}

			if err := b.CreateEntry(ctx, data.NewEntry("scan1/images")); !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist for duplicate fileset, got %v", err)
			}

			if _, err := b.ReadEntry(ctx, "scan2"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestAllBackends_UpdateEntry verifies that metadata and content fields
// survive a round trip through every backend.
func TestAllBackends_UpdateEntry(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			b, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			createEntries(tst, b, "scan1", "scan1/images", "scan1/images/rgb_001")

			metadata, err := data.NormalizeMetadata(map[string]any{
				"camera": "rgb",
				"pose":   []any{1, 2.5, 3},
				"nested": map[string]any{"exposure": 100},
			})
			if err != nil {
				tst.Fatalf("NormalizeMetadata failed: %v", err)
			}

			content := []byte("image bytes")
			if _, err := b.PutObject(ctx, "scan1/images/rgb_001.png", bytes.NewReader(content), int64(len(content)), data.ContentTypeImagePNG); err != nil {
				tst.Fatalf("PutObject failed: %v", err)
			}

			update := &data.EntryUpdate{
				Mask: data.EntryUpdateContent | data.EntryUpdateMetadata,
				Entry: &data.Entry{
					Filename:    "rgb_001.png",
					Size:        int64(len(content)),
					ContentType: data.ContentTypeImagePNG,
					Metadata:    metadata,
				},
			}
			if err := b.UpdateEntry(ctx, "scan1/images/rgb_001", update); err != nil {
				tst.Fatalf("UpdateEntry failed: %v", err)
			}

			entry, err := b.ReadEntry(ctx, "scan1/images/rgb_001")
			if err != nil {
				tst.Fatalf("ReadEntry failed: %v", err)
			}
			if entry.Filename != "rgb_001.png" {
				tst.Errorf("Expected filename 'rgb_001.png', got %q", entry.Filename)
			}
			if entry.ObjectKey() != "scan1/images/rgb_001.png" {
				tst.Errorf("Expected object key 'scan1/images/rgb_001.png', got %q", entry.ObjectKey())
			}
			if entry.Size != int64(len(content)) {
				tst.Errorf("Expected size %d, got %d", len(content), entry.Size)
			}
			if entry.ContentType != data.ContentTypeImagePNG {
				tst.Errorf("Expected content type %q, got %q", data.ContentTypeImagePNG, entry.ContentType)
			}
			if !reflect.DeepEqual(entry.Metadata, metadata) {
				tst.Errorf("Expected metadata %v, got %v", metadata, entry.Metadata)
			}

			if err := b.UpdateEntry(ctx, "scan1/missing", update); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestAllBackends_QueryEntries verifies listing, recursion, kind filters
// and pagination across all backend implementations.
func TestAllBackends_QueryEntries(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			b, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			createEntries(tst, b,
				"scan1", "scan2",
				"scan1/a", "scan1/b", "scan1/c",
				"scan1/a/file_1", "scan1/a/file_2",
			)

			result, err := b.QueryEntries(ctx, &backend.EntryQuery{})
			if err != nil {
				tst.Fatalf("QueryEntries failed: %v", err)
			}
			if got := entryKeys(result.Candidates); !reflect.DeepEqual(got, []string{"scan1", "scan2"}) {
				tst.Errorf("Expected scans [scan1 scan2], got %v", got)
			}

			result, err = b.QueryEntries(ctx, &backend.EntryQuery{Parent: "scan1"})
			if err != nil {
				tst.Fatalf("QueryEntries failed: %v", err)
			}
			if got := entryKeys(result.Candidates); !reflect.DeepEqual(got, []string{"scan1/a", "scan1/b", "scan1/c"}) {
				tst.Errorf("Expected filesets [scan1/a scan1/b scan1/c], got %v", got)
			}

			kind := data.KindFile
			result, err = b.QueryEntries(ctx, &backend.EntryQuery{Parent: "scan1", Recursive: true, FilterKind: &kind})
			if err != nil {
				tst.Fatalf("QueryEntries failed: %v", err)
			}
			if got := entryKeys(result.Candidates); !reflect.DeepEqual(got, []string{"scan1/a/file_1", "scan1/a/file_2"}) {
				tst.Errorf("Expected files [scan1/a/file_1 scan1/a/file_2], got %v", got)
			}

			result, err = b.QueryEntries(ctx, &backend.EntryQuery{
				Parent:    "scan1",
				Limit:     1,
				Offset:    1,
				SortOrder: backend.SortDesc,
			})
			if err != nil {
				tst.Fatalf("QueryEntries failed: %v", err)
			}
			if got := entryKeys(result.Candidates); !reflect.DeepEqual(got, []string{"scan1/b"}) {
				tst.Errorf("Expected page [scan1/b], got %v", got)
			}
			if result.TotalCount != 3 || !result.Paginating {
				tst.Errorf("Expected total 3 with more pages, got %d (%v)", result.TotalCount, result.Paginating)
			}
		})
	}
}

// TestAllBackends_DeleteEntry verifies that deletes remove the whole subtree
// and nothing beyond it.
func TestAllBackends_DeleteEntry(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			b, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			createEntries(tst, b,
				"scan1", "scan1/a", "scan1/a/file_1",
				"scan1/a_b", "scan1/a_b/file_1",
			)

			if err := b.DeleteEntry(ctx, "scan1/a"); err != nil {
				tst.Fatalf("DeleteEntry failed: %v", err)
			}

			for _, key := range []string{"scan1/a", "scan1/a/file_1"} {
				if exists, _ := b.ExistsEntry(ctx, key); exists {
					tst.Errorf("Expected %q to be deleted", key)
				}
			}
			for _, key := range []string{"scan1", "scan1/a_b", "scan1/a_b/file_1"} {
				if exists, _ := b.ExistsEntry(ctx, key); !exists {
					tst.Errorf("Expected %q to survive", key)
				}
			}

			if err := b.DeleteEntry(ctx, "scan1"); err != nil {
				tst.Fatalf("DeleteEntry failed: %v", err)
			}
			if exists, _ := b.ExistsEntry(ctx, "scan1/a_b/file_1"); exists {
				tst.Error("Expected scan delete to remove nested files")
			}

			if err := b.DeleteEntry(ctx, "scan1"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestAllBackends_ObjectOperations verifies put, get, head and delete of
// file content across all backend implementations.
func TestAllBackends_ObjectOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			b, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			createEntries(tst, b, "scan1", "scan1/a")

			content := []byte("hello world")
			stat, err := b.PutObject(ctx, "scan1/a/hello.txt", bytes.NewReader(content), int64(len(content)), data.ContentTypeTextPlain)
			if err != nil {
				tst.Fatalf("PutObject failed: %v", err)
			}
			if stat.Size != int64(len(content)) {
				tst.Errorf("Expected size %d, got %d", len(content), stat.Size)
			}

			reader, err := b.GetObject(ctx, "scan1/a/hello.txt")
			if err != nil {
				tst.Fatalf("GetObject failed: %v", err)
			}
			got, err := io.ReadAll(reader)
			reader.Close()
			if err != nil {
				tst.Fatalf("ReadAll failed: %v", err)
			}
			if !bytes.Equal(got, content) {
				tst.Errorf("Expected %q, got %q", content, got)
			}

			// Overwrite with shorter content
			if _, err := b.PutObject(ctx, "scan1/a/hello.txt", strings.NewReader("bye"), 3, data.ContentTypeTextPlain); err != nil {
				tst.Fatalf("PutObject failed: %v", err)
			}
			head, err := b.HeadObject(ctx, "scan1/a/hello.txt")
			if err != nil {
				tst.Fatalf("HeadObject failed: %v", err)
			}
			if head.Size != 3 {
				tst.Errorf("Expected size 3 after overwrite, got %d", head.Size)
			}

			if _, err := b.PutObject(ctx, "scan1/a/short.txt", strings.NewReader("abc"), 10, data.ContentTypeTextPlain); !errors.Is(err, data.ErrInvalid) {
				tst.Errorf("Expected ErrInvalid for short content, got %v", err)
			}

			if err := b.DeleteObject(ctx, "scan1/a/hello.txt"); err != nil {
				tst.Fatalf("DeleteObject failed: %v", err)
			}
			if _, err := b.HeadObject(ctx, "scan1/a/hello.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist after delete, got %v", err)
			}
			if _, err := b.GetObject(ctx, "scan1/a/hello.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist after delete, got %v", err)
			}
			if err := b.DeleteObject(ctx, "scan1/a/hello.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for second delete, got %v", err)
			}
		})
	}
}

// TestAllBackends_Lock verifies that only one owner can hold the database lock.
func TestAllBackends_Lock(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			b, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			if err := b.Lock(ctx, "owner-a"); err != nil {
				tst.Fatalf("Lock failed: %v", err)
			}
			if err := b.Lock(ctx, "owner-a"); err != nil {
				tst.Errorf("Expected relock by the same owner to succeed, got %v", err)
			}
			if err := b.Lock(ctx, "owner-b"); !errors.Is(err, data.ErrBusy) {
				tst.Errorf("Expected ErrBusy, got %v", err)
			}
			if err := b.Unlock(ctx, "owner-b"); !errors.Is(err, data.ErrNotLocked) {
				tst.Errorf("Expected ErrNotLocked, got %v", err)
			}
			if err := b.Unlock(ctx, "owner-a"); err != nil {
				tst.Fatalf("Unlock failed: %v", err)
			}
			if err := b.Lock(ctx, "owner-b"); err != nil {
				tst.Fatalf("Lock after unlock failed: %v", err)
			}
			if err := b.Unlock(ctx, "owner-b"); err != nil {
				tst.Fatalf("Unlock failed: %v", err)
			}
		})
	}
}
