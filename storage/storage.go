package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"fashion-studio/conf"
)

// ObjectStore stores opaque bytes under a slash-separated key and hands back
// a URL that resolves to them.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, key string) bool
	// URL returns the public URL for key without touching the store.
	URL(key string) string
}

var (
	ErrInvalid       = errors.New("invalid storage configuration")
	ErrInvalidKey    = errors.New("invalid object key")
	ErrUploadFailure = errors.New("upload failed")
)

// NewObjectStore create cloud object store by configuration
func NewObjectStore(ctx context.Context, cfg conf.ObjectStorageConfig) (ObjectStore, error) {
	var (
		store ObjectStore
		err   error
	)
	switch cfg.Type {
	case "gcs":
		store, err = asObjectStore(NewGCSStorage(ctx, cfg.GCS))
	case "oss":
		store, err = asObjectStore(NewOSSStorage(cfg.OSS.Endpoint, cfg.OSS.AccessKey, cfg.OSS.SecretKey, cfg.OSS.Bucket, cfg.OSS.Domain))
	case "s3":
		store, err = asObjectStore(NewS3Storage(ctx, cfg.S3.Region, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.S3.Domain))
	case "minio":
		store, err = asObjectStore(NewMinIOStorage(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL, cfg.MinIO.Domain))
	default:
		err = fmt.Errorf("%w: unknown object store type %q", ErrInvalid, cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// asObjectStore keeps a failed constructor from leaking a typed nil.
func asObjectStore[T ObjectStore](s T, err error) (ObjectStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateKey rejects keys that are empty, absolute or escape their root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if cleaned := path.Clean(key); cleaned != key || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func uploadError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUploadFailure, provider, err)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
