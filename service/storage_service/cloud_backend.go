package storage_service

import (
	"context"
	"errors"
	"io"

	"fashion-studio/common/logger"
	"fashion-studio/database"
	"fashion-studio/model"
	"fashion-studio/storage"
)

// CloudBackend stores bytes in a managed object store and records in a
// managed ledger database. Uploads that fail for any reason are written to
// the local media root instead; ledger operations have no fallback.
type CloudBackend struct {
	ledger
	store    storage.ObjectStore
	fallback storage.ObjectStore
	verifier TokenVerifier
	log      *logger.Logger
}

func NewCloudBackend(store, fallback storage.ObjectStore, db database.AssetDatabase, verifier TokenVerifier, log *logger.Logger) *CloudBackend {
	return &CloudBackend{ledger: ledger{db: db}, store: store, fallback: fallback, verifier: verifier, log: log}
}

func (b *CloudBackend) UploadFile(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	url, err := b.store.Put(ctx, key, data, contentType)
	if err == nil {
		return url, nil
	}
	b.log.Warn("Cloud upload failed, saving locally", "key", key, "error", err)
	return b.fallback.Put(ctx, key, data, contentType)
}

func (b *CloudBackend) StoredURL(ctx context.Context, key string) (string, bool) {
	if storage.ValidateKey(key) != nil {
		return "", false
	}
	if b.store.Exists(ctx, key) {
		return b.store.URL(key), true
	}
	if b.fallback.Exists(ctx, key) {
		return b.fallback.URL(key), true
	}
	return "", false
}

func (b *CloudBackend) VerifyToken(ctx context.Context, token string) (*model.Identity, error) {
	return b.verifier.Verify(ctx, token)
}

func (b *CloudBackend) SaveAssetRecord(ctx context.Context, userID string, asset *model.Asset) (string, error) {
	return b.save(ctx, userID, asset)
}

func (b *CloudBackend) GetAssetRecords(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	return b.list(ctx, userID, query)
}

func (b *CloudBackend) UpdateAssetRecord(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	return b.update(ctx, userID, id, update)
}

func (b *CloudBackend) DeleteAssetRecord(ctx context.Context, userID, id string) error {
	return b.remove(ctx, userID, id)
}

// MediaRoot is where fallback uploads land.
func (b *CloudBackend) MediaRoot() string {
	if l, ok := b.fallback.(*storage.LocalStorage); ok {
		return l.BasePath()
	}
	return ""
}

func (b *CloudBackend) Close() error {
	errs := []error{b.db.Close()}
	if c, ok := b.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
