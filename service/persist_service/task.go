package persist_service

import (
	"context"
	"path"

	"fashion-studio/model"
	"fashion-studio/storage"

	"github.com/google/uuid"
)

// Store is the part of the storage backend a persistence task needs.
type Store interface {
	UploadFile(ctx context.Context, data []byte, key, contentType string) (string, error)
	StoredURL(ctx context.Context, key string) (string, bool)
	SaveAssetRecord(ctx context.Context, userID string, asset *model.Asset) (string, error)
}

// Task uploads one generated artifact and appends its ledger record.
type Task struct {
	UserID      string
	Key         string
	ContentType string
	Data        []byte
	// Asset holds every field of the record except URL, which is filled
	// from the upload.
	Asset model.Asset
}

// NewTask keys the payload as <uid>/<uuid><ext> and pre-assigns the record
// id so a replay cannot produce a second record for the same artifact.
func NewTask(userID string, data []byte, filename, contentType string, asset model.Asset) Task {
	ext := storage.ExtensionFor(filename, contentType)
	id := uuid.NewString()
	asset.ID = id
	asset.UserID = userID
	return Task{
		UserID:      userID,
		Key:         path.Join(userID, id+"."+ext),
		ContentType: contentType,
		Data:        data,
		Asset:       asset,
	}
}
