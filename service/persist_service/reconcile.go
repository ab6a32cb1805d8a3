package persist_service

import (
	"context"
	"errors"
	"fmt"

	"fashion-studio/common/logger"
	"fashion-studio/database"
	"fashion-studio/model"
)

// Reconciler replays dead letters against a store.
type Reconciler struct {
	store Store
	dead  *DeadLetterLog
	log   *logger.Logger
}

func NewReconciler(store Store, dead *DeadLetterLog, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, dead: dead, log: log}
}

// Replay re-uploads the spooled payload when the original upload never
// succeeded, writes the record, and removes the entry on success. Bytes a
// previous replay already stored are not uploaded again, and a record that
// already exists under the task's id counts as written.
func (r *Reconciler) Replay(ctx context.Context, f *model.PersistFailure) error {
	url := f.URL
	if url == "" {
		if stored, ok := r.store.StoredURL(ctx, f.Key); ok {
			url = stored
		} else {
			payload, err := r.dead.Payload(f)
			if err != nil {
				return err
			}
			url, err = r.store.UploadFile(ctx, payload, f.Key, f.ContentType)
			if err != nil {
				return fmt.Errorf("re-upload %s: %w", f.Key, err)
			}
		}
	}
	asset := f.Asset
	asset.URL = url
	if _, err := r.store.SaveAssetRecord(ctx, f.UserID, &asset); err != nil {
		if !errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("re-save record %s: %w", asset.ID, err)
		}
		r.log.Info("Dead letter already recorded", "id", f.ID, "asset_id", asset.ID)
	}
	if err := r.dead.Remove(f.ID); err != nil && !errors.Is(err, ErrDeadLetterNotFound) {
		return err
	}
	r.log.Info("Dead letter replayed", "id", f.ID, "user_id", f.UserID, "stage", f.Stage)
	return nil
}

// ReplayAll replays every entry, calling progress after each. Entries that
// fail again stay in the log.
func (r *Reconciler) ReplayAll(ctx context.Context, progress func(f *model.PersistFailure, err error)) (replayed, failed int, err error) {
	entries, err := r.dead.List()
	if err != nil {
		return 0, 0, err
	}
	for _, f := range entries {
		if ctx.Err() != nil {
			return replayed, failed, ctx.Err()
		}
		err := r.Replay(ctx, f)
		if err != nil {
			failed++
			r.log.Warn("Dead letter replay failed", "id", f.ID, "user_id", f.UserID, "error", err)
		} else {
			replayed++
		}
		if progress != nil {
			progress(f, err)
		}
	}
	return replayed, failed, nil
}
