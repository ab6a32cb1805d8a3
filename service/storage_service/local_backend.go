package storage_service

import (
	"context"

	"fashion-studio/common/logger"
	"fashion-studio/database"
	"fashion-studio/model"
	"fashion-studio/storage"
)

// LocalBackend keeps bytes under the media root and records in per-user JSON
// files. Intended for development: any non-empty token is accepted.
type LocalBackend struct {
	ledger
	store    *storage.LocalStorage
	verifier TokenVerifier
	log      *logger.Logger
}

func NewLocalBackend(store *storage.LocalStorage, db database.AssetDatabase, verifier TokenVerifier, log *logger.Logger) *LocalBackend {
	return &LocalBackend{ledger: ledger{db: db}, store: store, verifier: verifier, log: log}
}

func (b *LocalBackend) UploadFile(ctx context.Context, data []byte, key, contentType string) (string, error) {
	return b.store.Put(ctx, key, data, contentType)
}

func (b *LocalBackend) StoredURL(ctx context.Context, key string) (string, bool) {
	if !b.store.Exists(ctx, key) {
		return "", false
	}
	return b.store.URL(key), true
}

func (b *LocalBackend) VerifyToken(ctx context.Context, token string) (*model.Identity, error) {
	return b.verifier.Verify(ctx, token)
}

func (b *LocalBackend) SaveAssetRecord(ctx context.Context, userID string, asset *model.Asset) (string, error) {
	return b.save(ctx, userID, asset)
}

func (b *LocalBackend) GetAssetRecords(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	return b.list(ctx, userID, query)
}

func (b *LocalBackend) UpdateAssetRecord(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	return b.update(ctx, userID, id, update)
}

func (b *LocalBackend) DeleteAssetRecord(ctx context.Context, userID, id string) error {
	return b.remove(ctx, userID, id)
}

func (b *LocalBackend) MediaRoot() string {
	return b.store.BasePath()
}

func (b *LocalBackend) Close() error {
	return b.db.Close()
}
