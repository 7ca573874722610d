package s3

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/fsdb/backend"
	"github.com/mwantia/fsdb/data"
)

// S3Backend stores file content in an S3 compatible bucket. It has no
// catalog, so it is always paired with a catalog backend.
type S3Backend struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3BackendConfig
}

type S3BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// Prefix prepended to every object key (optional)
	Prefix string

	// CreateBucket makes Open create a missing bucket
	CreateBucket bool
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required: %w", data.ErrInvalid)
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: client,
		config: config,
	}, nil
}

// Returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open verifies that the bucket exists, creating it when configured to.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.config.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if !sb.config.CreateBucket {
		return fmt.Errorf("bucket '%s' does not exist: %w", sb.config.Bucket, data.ErrNotDatabase)
	}

	return sb.client.MakeBucket(ctx, sb.config.Bucket, minio.MakeBucketOptions{
		Region: sb.config.Region,
	})
}

// Close is part of the lifecycle behaviour and gets called when disconnecting the database.
func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityStorage,
		},
		// Largest object a multipart upload can produce
		MaxObjectSize: 5 << 40, // 5 TiB
	}
}

func (sb *S3Backend) objectName(key string) string {
	prefix := strings.Trim(sb.config.Prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
