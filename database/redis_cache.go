package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fashion-studio/common/logger"
	"fashion-studio/model"

	"github.com/redis/go-redis/v9"
)

// RedisConfig redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient connects and pings; the caller decides what to do on error.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CachedAssetDatabase caches ledger listings in Redis. Every cached listing
// key carries the user's generation counter; writes go straight to the
// wrapped database and then bump the counter, so listings filled from a read
// that raced a write land under a key nobody asks for again.
// Redis failures are logged and never fail the call.
type CachedAssetDatabase struct {
	AssetDatabase
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedAssetDatabase wraps inner with a listing cache.
func NewCachedAssetDatabase(inner AssetDatabase, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedAssetDatabase {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &CachedAssetDatabase{AssetDatabase: inner, client: client, ttl: ttl, log: log}
}

func generationKey(userID string) string {
	return "assets:gen:" + userID
}

func listCacheKey(userID string, generation int64, query model.AssetQuery) string {
	return fmt.Sprintf("assets:%s:%d:%s:%d", userID, generation, query.Type, query.Limit)
}

func (c *CachedAssetDatabase) generation(ctx context.Context, userID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CachedAssetDatabase) ListAssets(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		c.log.Warn("listing cache read failed", "user_id", userID, "error", err)
		return c.AssetDatabase.ListAssets(ctx, userID, query)
	}

	key := listCacheKey(userID, gen, query)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var assets []*model.Asset
		if err := json.Unmarshal(data, &assets); err == nil {
			return assets, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("listing cache read failed", "user_id", userID, "error", err)
	}

	assets, err := c.AssetDatabase.ListAssets(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(assets); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("listing cache write failed", "user_id", userID, "error", err)
		}
	}
	return assets, nil
}

func (c *CachedAssetDatabase) SaveAsset(ctx context.Context, asset *model.Asset) error {
	if err := c.AssetDatabase.SaveAsset(ctx, asset); err != nil {
		return err
	}
	c.invalidate(ctx, asset.UserID)
	return nil
}

func (c *CachedAssetDatabase) UpdateAsset(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	if err := c.AssetDatabase.UpdateAsset(ctx, userID, id, update); err != nil {
		return err
	}
	c.invalidate(ctx, userID)
	return nil
}

func (c *CachedAssetDatabase) DeleteAsset(ctx context.Context, userID, id string) error {
	if err := c.AssetDatabase.DeleteAsset(ctx, userID, id); err != nil {
		return err
	}
	c.invalidate(ctx, userID)
	return nil
}

// invalidate moves the user to a new generation; old listings expire by TTL.
func (c *CachedAssetDatabase) invalidate(ctx context.Context, userID string) {
	if err := c.client.Incr(ctx, generationKey(userID)).Err(); err != nil {
		c.log.Warn("listing cache invalidation failed", "user_id", userID, "error", err)
	}
}

func (c *CachedAssetDatabase) Close() error {
	return errors.Join(c.AssetDatabase.Close(), c.client.Close())
}
