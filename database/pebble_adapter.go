package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"fashion-studio/model"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleDatabase PebbleDB ledger with one store per collection
type PebbleDatabase struct {
	collections map[string]*pebble.DB // Map of collection name to PebbleDB instance
	locks       userLocks
}

// PebbleConfig PebbleDB configuration
type PebbleConfig struct {
	DataDir string
	FS      vfs.FS // nil uses the OS filesystem
}

// Collection names and their key-value formats
const (
	collectionAssets   = "assets"   // key: {user_id}:{asset_id}, value: JSON(Asset)
	collectionCounters = "counters" // key: {user_id}, value: last CreatedAt in that ledger
)

// NewPebbleDatabase create PebbleDB database instance with multiple collections
func NewPebbleDatabase(cfg *PebbleConfig) (*PebbleDatabase, error) {
	if cfg.FS == nil {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
		}
	}

	collections := make(map[string]*pebble.DB)
	for _, name := range []string{collectionAssets, collectionCounters} {
		collectionPath := filepath.Join(cfg.DataDir, "ledger_db", name)
		db, err := pebble.Open(collectionPath, &pebble.Options{FS: cfg.FS})
		if err != nil {
			for _, openedDB := range collections {
				openedDB.Close()
			}
			return nil, fmt.Errorf("failed to open collection %s at %s: %w", name, collectionPath, err)
		}
		collections[name] = db
	}

	return &PebbleDatabase{collections: collections}, nil
}

func assetKey(userID, id string) []byte {
	return []byte(userID + ":" + id)
}

func (p *PebbleDatabase) lastCreatedAt(userID string) (int64, error) {
	val, closer, err := p.collections[collectionCounters].Get([]byte(userID))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	return strconv.ParseInt(string(val), 10, 64)
}

func (p *PebbleDatabase) getAsset(userID, id string) (*model.Asset, error) {
	val, closer, err := p.collections[collectionAssets].Get(assetKey(userID, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var asset model.Asset
	if err := json.Unmarshal(val, &asset); err != nil {
		return nil, fmt.Errorf("failed to decode asset %s: %w", id, err)
	}
	return &asset, nil
}

func (p *PebbleDatabase) SaveAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateAsset(asset); err != nil {
		return err
	}
	mu := p.locks.get(asset.UserID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := p.getAsset(asset.UserID, asset.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, asset.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	last, err := p.lastCreatedAt(asset.UserID)
	if err != nil {
		return err
	}
	asset.CreatedAt = nextCreatedAt(last)

	data, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	if err := p.collections[collectionAssets].Set(assetKey(asset.UserID, asset.ID), data, pebble.Sync); err != nil {
		return err
	}
	return p.collections[collectionCounters].Set([]byte(asset.UserID), []byte(strconv.FormatInt(asset.CreatedAt, 10)), pebble.Sync)
}

func (p *PebbleDatabase) ListAssets(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	prefix := userID + ":"
	iter, err := p.collections[collectionAssets].NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "~"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var assets []*model.Asset
	for iter.First(); iter.Valid(); iter.Next() {
		var asset model.Asset
		if err := json.Unmarshal(iter.Value(), &asset); err != nil {
			continue
		}
		if asset.UserID != userID {
			continue
		}
		assets = append(assets, &asset)
	}
	return applyQuery(assets, query), nil
}

func (p *PebbleDatabase) GetAsset(ctx context.Context, userID, id string) (*model.Asset, error) {
	return p.getAsset(userID, id)
}

func (p *PebbleDatabase) UpdateAsset(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	mu := p.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	asset, err := p.getAsset(userID, id)
	if err != nil {
		return err
	}
	update.Apply(asset)
	data, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	return p.collections[collectionAssets].Set(assetKey(userID, id), data, pebble.Sync)
}

func (p *PebbleDatabase) DeleteAsset(ctx context.Context, userID, id string) error {
	mu := p.locks.get(userID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := p.getAsset(userID, id); err != nil {
		return err
	}
	return p.collections[collectionAssets].Delete(assetKey(userID, id), pebble.Sync)
}

func (p *PebbleDatabase) Close() error {
	var errs []error
	for name, db := range p.collections {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close collection %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
