package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fashion-studio/model"
)

// JSONDatabase keeps each user's ledger in <DataDir>/<user_id>/assets.json.
// Every read-modify-write holds the user's mutex and replaces the file with
// an atomic rename, so concurrent saves never drop records.
type JSONDatabase struct {
	dataDir string
	locks   userLocks
}

// NewJSONDatabase create local JSON ledger rooted at dataDir
func NewJSONDatabase(dataDir string) (*JSONDatabase, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &JSONDatabase{dataDir: dataDir}, nil
}

func (j *JSONDatabase) ledgerPath(userID string) (string, error) {
	if userID == "" || userID == "." || userID == ".." || strings.ContainsAny(userID, `/\`) {
		return "", fmt.Errorf("%w: user id %q", ErrInvalidRecord, userID)
	}
	return filepath.Join(j.dataDir, userID, "assets.json"), nil
}

func (j *JSONDatabase) read(userID string) ([]*model.Asset, error) {
	path, err := j.ledgerPath(userID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var assets []*model.Asset
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("failed to decode ledger for user: %w", err)
	}
	return assets, nil
}

func (j *JSONDatabase) write(userID string, assets []*model.Asset) error {
	path, err := j.ledgerPath(userID)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "assets-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func (j *JSONDatabase) SaveAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateAsset(asset); err != nil {
		return err
	}
	mu := j.locks.get(asset.UserID)
	mu.Lock()
	defer mu.Unlock()

	assets, err := j.read(asset.UserID)
	if err != nil {
		return err
	}
	var last int64
	for _, a := range assets {
		if a.ID == asset.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, asset.ID)
		}
		if a.CreatedAt > last {
			last = a.CreatedAt
		}
	}
	asset.CreatedAt = nextCreatedAt(last)
	return j.write(asset.UserID, append(assets, asset.Clone()))
}

func (j *JSONDatabase) ListAssets(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	mu := j.locks.get(userID)
	mu.Lock()
	assets, err := j.read(userID)
	mu.Unlock()
	if err != nil {
		return nil, err
	}
	return applyQuery(assets, query), nil
}

func (j *JSONDatabase) GetAsset(ctx context.Context, userID, id string) (*model.Asset, error) {
	mu := j.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	assets, err := j.read(userID)
	if err != nil {
		return nil, err
	}
	for _, a := range assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (j *JSONDatabase) UpdateAsset(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	mu := j.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	assets, err := j.read(userID)
	if err != nil {
		return err
	}
	for _, a := range assets {
		if a.ID == id {
			update.Apply(a)
			return j.write(userID, assets)
		}
	}
	return ErrNotFound
}

func (j *JSONDatabase) DeleteAsset(ctx context.Context, userID, id string) error {
	mu := j.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	assets, err := j.read(userID)
	if err != nil {
		return err
	}
	for i, a := range assets {
		if a.ID == id {
			return j.write(userID, append(assets[:i], assets[i+1:]...))
		}
	}
	return ErrNotFound
}

func (j *JSONDatabase) Close() error {
	return nil
}
