package s3

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

func TestS3Backend_ObjectName(t *testing.T) {
	tests := []struct {
		prefix   string
		expected string
	}{
		{"", "scan/set/a.txt"},
		{"fsdb", "fsdb/scan/set/a.txt"},
		{"/fsdb/db1/", "fsdb/db1/scan/set/a.txt"},
	}

	for _, tt := range tests {
		sb, err := NewS3Backend(&S3BackendConfig{Endpoint: "127.0.0.1:9000", Bucket: "fsdb", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("NewS3Backend failed: %v", err)
		}
		if name := sb.objectName("scan/set/a.txt"); name != tt.expected {
			t.Errorf("Prefix %q: expected %q, got %q", tt.prefix, tt.expected, name)
		}
	}
}

func TestS3Backend_Config(t *testing.T) {
	if _, err := NewS3Backend(nil); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Expected ErrInvalid without config, got %v", err)
	}
	if _, err := NewS3Backend(&S3BackendConfig{Endpoint: "127.0.0.1:9000"}); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Expected ErrInvalid without bucket, got %v", err)
	}

	sb, err := NewS3Backend(&S3BackendConfig{Endpoint: "127.0.0.1:9000", Bucket: "fsdb"})
	if err != nil {
		t.Fatalf("NewS3Backend failed: %v", err)
	}

	capabilities := sb.GetCapabilities()
	if !capabilities.Contains(backend.CapabilityStorage) || capabilities.Contains(backend.CapabilityCatalog) {
		t.Errorf("Expected storage only, got %v", capabilities.Capabilities)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code     string
		expected error
	}{
		{"NoSuchKey", data.ErrNotExist},
		{"NoSuchBucket", data.ErrNotExist},
		{"AccessDenied", data.ErrPermission},
	}

	for _, tt := range tests {
		err := mapError(minio.ErrorResponse{Code: tt.code})
		if !errors.Is(err, tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.code, tt.expected, err)
		}
	}

	other := fmt.Errorf("connection refused")
	if err := mapError(other); err != other {
		t.Errorf("Expected unrelated error to pass through, got %v", err)
	}
	if mapError(nil) != nil {
		t.Error("Expected nil to stay nil")
	}
}

// TestS3Backend_Objects runs against the server FSDB_TEST_S3 names, given
// as "access:secret@host:port/bucket".
func TestS3Backend_Objects(t *testing.T) {
	address := os.Getenv("FSDB_TEST_S3")
	if address == "" {
		t.Skip("FSDB_TEST_S3 is not set")
	}

	u, err := url.Parse("s3://" + address)
	if err != nil {
		t.Fatalf("Invalid FSDB_TEST_S3: %v", err)
	}

	config := &S3BackendConfig{
		Endpoint:     u.Host,
		Bucket:       strings.Trim(u.Path, "/"),
		Prefix:       "test-" + uuid.NewString(),
		CreateBucket: true,
	}
	if u.User != nil {
		config.AccessKey = u.User.Username()
		config.SecretKey, _ = u.User.Password()
	}

	ctx := t.Context()
	sb, err := NewS3Backend(config)
	if err != nil {
		t.Fatalf("NewS3Backend failed: %v", err)
	}
	if err := sb.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	content := []byte("s3 content")
	stat, err := sb.PutObject(ctx, "scan/set/a.txt", bytes.NewReader(content), int64(len(content)), data.ContentTypeTextPlain)
	if err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if stat.Size != int64(len(content)) {
		t.Errorf("Expected size %d, got %d", len(content), stat.Size)
	}

	head, err := sb.HeadObject(ctx, "scan/set/a.txt")
	if err != nil {
		t.Fatalf("HeadObject failed: %v", err)
	}
	if head.ContentType != data.ContentTypeTextPlain {
		t.Errorf("Expected %s, got %s", data.ContentTypeTextPlain, head.ContentType)
	}

	r, err := sb.GetObject(ctx, "scan/set/a.txt")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	buf, _ := io.ReadAll(r)
	r.Close()
	if !bytes.Equal(buf, content) {
		t.Errorf("Expected %q, got %q", content, buf)
	}

	if err := sb.DeleteObject(ctx, "scan/set/a.txt"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, err := sb.GetObject(ctx, "scan/set/a.txt"); !errors.Is(err, data.ErrNotExist) {
		t.Errorf("Expected ErrNotExist after delete, got %v", err)
	}
	if err := sb.DeleteObject(ctx, "scan/set/a.txt"); !errors.Is(err, data.ErrNotExist) {
		t.Errorf("Expected ErrNotExist for second delete, got %v", err)
	}
}
