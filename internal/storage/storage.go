package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// UploadOptions conveys object metadata for an upload.
type UploadOptions struct {
	ContentType  string
	CacheControl string
}

// Service keeps project media in remote object storage.
type Service interface {
	// Upload stores body under key and returns the URL clients should use.
	Upload(ctx context.Context, key string, body io.Reader, opts UploadOptions) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, prefix string) error
	GetObjectURL(ctx context.Context, key string, expires time.Duration) (string, error)
}
