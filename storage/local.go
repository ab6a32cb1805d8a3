package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage local file system storage served under <publicBaseURL>/media/
type LocalStorage struct {
	basePath      string
	publicBaseURL string
}

// NewLocalStorage create local storage instance
func NewLocalStorage(basePath, publicBaseURL string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./media"
	}

	// Ensure directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStorage{
		basePath:      basePath,
		publicBaseURL: publicBaseURL,
	}, nil
}

// BasePath is the directory mounted by the static /media route.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) filePath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

// Put save file and return its /media URL
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	filePath, err := s.filePath(key)
	if err != nil {
		return "", err
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", uploadError("local", fmt.Errorf("failed to create directory: %w", err))
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", uploadError("local", fmt.Errorf("failed to write file: %w", err))
	}

	return s.URL(key), nil
}

// Exists check if file exists
func (s *LocalStorage) Exists(ctx context.Context, key string) bool {
	filePath, err := s.filePath(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(filePath)
	return err == nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.publicBaseURL, "media/"+key)
}
