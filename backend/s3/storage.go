package s3

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/fsdb/data"
)

func (sb *S3Backend) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType data.ContentType) (*data.ObjectStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	info, err := sb.client.PutObject(ctx, sb.config.Bucket, sb.objectName(key), r, size, minio.PutObjectOptions{
		ContentType: string(contentType),
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &data.ObjectStat{
		Key:         key,
		Size:        info.Size,
		ContentType: contentType,
		ETag:        info.ETag,
		ModifyTime:  info.LastModified,
	}, nil
}

func (sb *S3Backend) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	// GetObject is lazy, a missing key would only surface on the first read
	if _, err := sb.statObjectUnsafe(ctx, key); err != nil {
		return nil, err
	}

	object, err := sb.client.GetObject(ctx, sb.config.Bucket, sb.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}

	return object, nil
}

func (sb *S3Backend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.statObjectUnsafe(ctx, key)
}

func (sb *S3Backend) DeleteObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// RemoveObject succeeds for missing keys
	if _, err := sb.statObjectUnsafe(ctx, key); err != nil {
		return err
	}

	return mapError(sb.client.RemoveObject(ctx, sb.config.Bucket, sb.objectName(key), minio.RemoveObjectOptions{}))
}

// statObjectUnsafe MUST be called while holding at least a read lock.
func (sb *S3Backend) statObjectUnsafe(ctx context.Context, key string) (*data.ObjectStat, error) {
	info, err := sb.client.StatObject(ctx, sb.config.Bucket, sb.objectName(key), minio.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err)
	}

	contentType := data.ContentType(info.ContentType)
	if contentType == "" {
		contentType = data.GetMIMEType(key)
	}

	return &data.ObjectStat{
		Key:         key,
		Size:        info.Size,
		ContentType: contentType,
		ETag:        info.ETag,
		ModifyTime:  info.LastModified,
	}, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return data.ErrNotExist
	case "AccessDenied":
		return data.ErrPermission
	default:
		return err
	}
}
