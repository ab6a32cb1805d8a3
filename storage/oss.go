package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStorage Alibaba Cloud OSS storage
type OSSStorage struct {
	bucket  *oss.Bucket
	baseURL string
}

// NewOSSStorage create OSS storage instance
func NewOSSStorage(endpoint, accessKey, secretKey, bucketName, domain string) (*OSSStorage, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, ErrInvalid
	}

	// Create OSS client instance
	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}

	// Get storage bucket
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		bucket:  bucket,
		baseURL: ossBaseURL(endpoint, bucketName, domain),
	}, nil
}

func ossBaseURL(endpoint, bucket, domain string) string {
	if domain != "" {
		return strings.TrimRight(domain, "/")
	}
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return "https://" + bucket + "." + strings.TrimRight(host, "/")
}

// Put upload file to OSS with a public-read ACL
func (s *OSSStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	err := s.bucket.PutObject(key, bytes.NewReader(data),
		oss.ContentType(contentType),
		oss.ObjectACL(oss.ACLPublicRead),
		oss.WithContext(ctx),
	)
	if err != nil {
		return "", uploadError("oss", err)
	}
	return s.URL(key), nil
}

// Exists check if file exists in OSS
func (s *OSSStorage) Exists(ctx context.Context, key string) bool {
	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	return err == nil && exists
}

func (s *OSSStorage) URL(key string) string {
	return joinURL(s.baseURL, key)
}
