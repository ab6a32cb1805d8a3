package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"fashion-studio/conf"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage Google Cloud Storage bucket, optionally behind the emulator
type GCSStorage struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

// NewGCSStorage create GCS storage instance
func NewGCSStorage(ctx context.Context, cfg conf.GCSStorageConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, ErrInvalid
	}

	client, err := storage.NewClient(ctx, gcsClientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	return &GCSStorage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: gcsBaseURL(cfg),
	}, nil
}

func gcsClientOptions(cfg conf.GCSStorageConfig) []option.ClientOption {
	if endpoint := strings.TrimRight(cfg.Endpoint, "/"); endpoint != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// gcsBaseURL prefers a CDN domain, then the emulator, then the public
// storage.googleapis.com path.
func gcsBaseURL(cfg conf.GCSStorageConfig) string {
	switch {
	case cfg.Domain != "":
		return strings.TrimRight(cfg.Domain, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return "https://storage.googleapis.com/" + cfg.Bucket
	}
}

// Put upload file to GCS
func (s *GCSStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", uploadError("gcs", fmt.Errorf("failed to write data: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", uploadError("gcs", fmt.Errorf("failed to close writer: %w", err))
	}
	return s.URL(key), nil
}

// Exists check if file exists in GCS
func (s *GCSStorage) Exists(ctx context.Context, key string) bool {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	return err == nil
}

func (s *GCSStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}
