package database

import (
	"context"
	"testing"
	"time"

	"fashion-studio/common/logger"
	"fashion-studio/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, inner AssetDatabase) (*CachedAssetDatabase, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCachedAssetDatabase(inner, client, time.Minute, logger.Nop()), mr
}

// countingLedger counts listing reads and can run a hook between the read
// and the cache fill.
type countingLedger struct {
	AssetDatabase
	lists     int
	afterRead func()
}

func (l *countingLedger) ListAssets(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	l.lists++
	assets, err := l.AssetDatabase.ListAssets(ctx, userID, query)
	if hook := l.afterRead; hook != nil {
		l.afterRead = nil
		hook()
	}
	return assets, err
}

func TestCachedAssetDatabaseSurvivesRedisOutage(t *testing.T) {
	inner, err := NewJSONDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// nothing listens on port 1
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	db := NewCachedAssetDatabase(inner, client, time.Minute, logger.Nop())
	defer db.Close()

	ctx := context.Background()
	if err := db.SaveAsset(ctx, newAsset("u1", "a1", model.AssetTypeUserData)); err != nil {
		t.Fatalf("SaveAsset should ignore cache errors, got %v", err)
	}
	assets, err := db.ListAssets(ctx, "u1", model.AssetQuery{})
	if err != nil {
		t.Fatalf("ListAssets should ignore cache errors, got %v", err)
	}
	if len(assets) != 1 {
		t.Errorf("Expected 1 asset, got %d", len(assets))
	}
	if err := db.UpdateAsset(ctx, "u1", "a1", model.AssetUpdate{Tags: []string{"x"}}); err != nil {
		t.Errorf("UpdateAsset should ignore cache errors, got %v", err)
	}
}

func TestListCacheKey(t *testing.T) {
	key := listCacheKey("u1", 3, model.AssetQuery{Type: model.AssetTypeGeneratedImage, Limit: 5})
	if key != "assets:u1:3:generated-image:5" {
		t.Errorf("Unexpected cache key %s", key)
	}
}

func TestCachedAssetDatabaseServesHitsAndInvalidatesOnWrite(t *testing.T) {
	base, err := NewJSONDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingLedger{AssetDatabase: base}
	db, mr := newTestCache(t, inner)
	defer db.Close()
	ctx := context.Background()

	if err := db.SaveAsset(ctx, newAsset("u1", "a1", model.AssetTypeUserData)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		assets, err := db.ListAssets(ctx, "u1", model.AssetQuery{})
		if err != nil || len(assets) != 1 {
			t.Fatalf("Expected 1 asset, got %d (%v)", len(assets), err)
		}
	}
	if inner.lists != 1 {
		t.Errorf("Expected second listing served from cache, got %d ledger reads", inner.lists)
	}
	if gen, _ := mr.Get(generationKey("u1")); gen != "1" {
		t.Errorf("Expected generation 1, got %q", gen)
	}

	if err := db.SaveAsset(ctx, newAsset("u1", "a2", model.AssetTypeUserData)); err != nil {
		t.Fatal(err)
	}
	assets, err := db.ListAssets(ctx, "u1", model.AssetQuery{})
	if err != nil || len(assets) != 2 {
		t.Fatalf("Expected 2 assets after write, got %d (%v)", len(assets), err)
	}
	if inner.lists != 2 {
		t.Errorf("Expected write to force a ledger read, got %d", inner.lists)
	}

	if err := db.DeleteAsset(ctx, "u1", "a1"); err != nil {
		t.Fatal(err)
	}
	if assets, _ := db.ListAssets(ctx, "u1", model.AssetQuery{}); len(assets) != 1 {
		t.Errorf("Expected 1 asset after delete, got %d", len(assets))
	}
}

func TestCachedAssetDatabaseDropsFillRacingAWrite(t *testing.T) {
	base, err := NewJSONDatabase(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingLedger{AssetDatabase: base}
	db, _ := newTestCache(t, inner)
	defer db.Close()
	ctx := context.Background()

	if err := db.SaveAsset(ctx, newAsset("u1", "a1", model.AssetTypeUserData)); err != nil {
		t.Fatal(err)
	}
	inner.afterRead = func() {
		if err := db.SaveAsset(ctx, newAsset("u1", "a2", model.AssetTypeGeneratedImage)); err != nil {
			t.Errorf("concurrent SaveAsset failed: %v", err)
		}
	}
	if assets, _ := db.ListAssets(ctx, "u1", model.AssetQuery{}); len(assets) != 1 {
		t.Fatalf("Expected the pre-write listing, got %d", len(assets))
	}

	assets, err := db.ListAssets(ctx, "u1", model.AssetQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(assets) != 2 {
		t.Errorf("Expected the write to be visible, got %d assets", len(assets))
	}
}
