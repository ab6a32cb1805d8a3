package storage_service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fashion-studio/common/logger"
	"fashion-studio/conf"
	"fashion-studio/database"
	"fashion-studio/model"
	"fashion-studio/storage"

	"github.com/google/uuid"
)

// Backend is the storage surface handlers and the persistence orchestrator
// depend on. One variant is chosen at startup and shared by every request.
type Backend interface {
	// UploadFile stores bytes under key and returns a URL that resolves to them.
	UploadFile(ctx context.Context, data []byte, key, contentType string) (string, error)
	// StoredURL reports where key already lives, checking every store an
	// upload could have landed in.
	StoredURL(ctx context.Context, key string) (string, bool)
	// VerifyToken resolves a bearer token; failures wrap ErrAuthFailure.
	VerifyToken(ctx context.Context, token string) (*model.Identity, error)
	SaveAssetRecord(ctx context.Context, userID string, asset *model.Asset) (string, error)
	GetAssetRecords(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error)
	UpdateAssetRecord(ctx context.Context, userID, id string, update model.AssetUpdate) error
	DeleteAssetRecord(ctx context.Context, userID, id string) error
	// MediaRoot is the directory served at /media.
	MediaRoot() string
	Close() error
}

var (
	ErrAuthFailure  = errors.New("authentication failed")
	ErrInvalidAsset = errors.New("invalid asset")
	ErrNotFound     = database.ErrNotFound
	ErrDuplicate    = database.ErrDuplicate
)

// BackendBootstrapErrorCode classifies why NewBackend failed.
type BackendBootstrapErrorCode string

const (
	BootstrapErrorInvalidBackend BackendBootstrapErrorCode = "invalid_backend"
	BootstrapErrorObjectStore    BackendBootstrapErrorCode = "object_store"
	BootstrapErrorDatabase       BackendBootstrapErrorCode = "database"
	BootstrapErrorLocalStorage   BackendBootstrapErrorCode = "local_storage"
	BootstrapErrorVerifier       BackendBootstrapErrorCode = "token_verifier"
)

// BackendBootstrapError reports a failed backend selection at startup.
type BackendBootstrapError struct {
	Code    BackendBootstrapErrorCode
	Backend string
	Cause   error
}

func (e *BackendBootstrapError) Error() string {
	if e == nil {
		return "storage backend bootstrap failed"
	}
	return fmt.Sprintf("storage backend bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *BackendBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Swapped in tests.
var (
	newObjectStore   = storage.NewObjectStore
	newAssetDatabase = database.NewAssetDatabase
	newRedisClient   = database.NewRedisClient
)

// NewBackend builds the variant named by cfg.Storage.Backend.
func NewBackend(ctx context.Context, cfg *conf.Config, log *logger.Logger) (Backend, error) {
	fail := func(code BackendBootstrapErrorCode, cause error) (Backend, error) {
		err := &BackendBootstrapError{Code: code, Backend: cfg.Storage.Backend, Cause: cause}
		log.Error("Storage backend selection failed", "backend", cfg.Storage.Backend, "error_code", code, "error", cause)
		return nil, err
	}

	local, err := storage.NewLocalStorage(cfg.Storage.Local.MediaRoot, cfg.Storage.Local.PublicBaseURL)
	if err != nil {
		return fail(BootstrapErrorLocalStorage, err)
	}

	switch cfg.Storage.Backend {
	case "local":
		db, err := database.NewJSONDatabase(cfg.Storage.Local.DataDir)
		if err != nil {
			return fail(BootstrapErrorLocalStorage, err)
		}
		verifier := NewStaticVerifier(model.Identity{
			UID:   cfg.Storage.Local.UID,
			Email: cfg.Storage.Local.Email,
			Name:  cfg.Storage.Local.Name,
		})
		log.Info("Storage backend selected", "backend", "local", "media_root", local.BasePath())
		return NewLocalBackend(local, db, verifier, log), nil

	case "cloud":
		store, err := newObjectStore(ctx, cfg.Storage.Object)
		if err != nil {
			return fail(BootstrapErrorObjectStore, err)
		}
		db, err := newAssetDatabase(database.Options{
			Type:         database.DBType(cfg.Database.Type),
			DSN:          cfg.Database.Dsn,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			DataDir:      cfg.Database.DataDir,
		})
		if err != nil {
			return fail(BootstrapErrorDatabase, err)
		}
		if cfg.Redis.Enabled {
			client, err := newRedisClient(ctx, database.RedisConfig{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err != nil {
				log.Warn("Redis unavailable, listing cache disabled", "error", err)
			} else {
				db = database.NewCachedAssetDatabase(db, client, time.Duration(cfg.Redis.CacheTTL)*time.Second, log)
			}
		}
		verifier, err := NewFirebaseVerifier(cfg.Auth.FirebaseProjectID, cfg.Auth.JWKSURL)
		if err != nil {
			db.Close()
			return fail(BootstrapErrorVerifier, err)
		}
		log.Info("Storage backend selected", "backend", "cloud",
			"object_store", cfg.Storage.Object.Type, "database", cfg.Database.Type, "cache", cfg.Redis.Enabled)
		return NewCloudBackend(store, local, db, verifier, log), nil

	default:
		return fail(BootstrapErrorInvalidBackend, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend))
	}
}

// ledger carries the record operations both variants share.
type ledger struct {
	db database.AssetDatabase
}

// save assigns the id and owner, then writes the record. A pre-set ID is kept
// so a replayed dead letter lands under its original id.
func (l ledger) save(ctx context.Context, userID string, asset *model.Asset) (string, error) {
	if asset == nil || userID == "" {
		return "", ErrInvalidAsset
	}
	if !asset.Type.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidAsset, asset.Type)
	}
	if strings.TrimSpace(asset.URL) == "" {
		return "", fmt.Errorf("%w: missing url", ErrInvalidAsset)
	}
	record := asset.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.UserID = userID
	if record.Category == "" {
		record.Category = model.CategoryUserData
	}
	if err := l.db.SaveAsset(ctx, record); err != nil {
		return "", fmt.Errorf("save asset record: %w", err)
	}
	asset.ID, asset.UserID, asset.Category, asset.CreatedAt = record.ID, record.UserID, record.Category, record.CreatedAt
	return record.ID, nil
}

func (l ledger) list(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	if query.Limit < 0 {
		query.Limit = 0
	}
	assets, err := l.db.ListAssets(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("list asset records: %w", err)
	}
	return assets, nil
}

func (l ledger) update(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	if err := l.db.UpdateAsset(ctx, userID, id, update); err != nil {
		return fmt.Errorf("update asset record %s: %w", id, err)
	}
	return nil
}

func (l ledger) remove(ctx context.Context, userID, id string) error {
	if err := l.db.DeleteAsset(ctx, userID, id); err != nil {
		return fmt.Errorf("delete asset record %s: %w", id, err)
	}
	return nil
}
