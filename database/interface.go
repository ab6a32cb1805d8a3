package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fashion-studio/model"
)

// AssetDatabase stores per-user asset ledgers. Every operation is scoped by
// user id; no call can read or mutate another user's records.
type AssetDatabase interface {
	// SaveAsset inserts a new record. The asset's CreatedAt is assigned here
	// and is strictly greater than any CreatedAt already in the user's ledger.
	SaveAsset(ctx context.Context, asset *model.Asset) error
	// ListAssets returns the user's records newest first, filtered by type
	// and truncated to the limit after ordering.
	ListAssets(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error)
	GetAsset(ctx context.Context, userID, id string) (*model.Asset, error)
	UpdateAsset(ctx context.Context, userID, id string, update model.AssetUpdate) error
	DeleteAsset(ctx context.Context, userID, id string) error
	Close() error
}

// DBType database type
type DBType string

const (
	DBTypeMySQL    DBType = "mysql"
	DBTypePostgres DBType = "postgres"
	DBTypePebble   DBType = "pebble"
)

// Options selects and configures a cloud ledger database.
type Options struct {
	Type         DBType
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	DataDir      string
}

// NewAssetDatabase opens the ledger database named by opts.Type.
func NewAssetDatabase(opts Options) (AssetDatabase, error) {
	sqlCfg := &SQLConfig{DSN: opts.DSN, MaxOpenConns: opts.MaxOpenConns, MaxIdleConns: opts.MaxIdleConns}
	switch opts.Type {
	case DBTypeMySQL:
		db, err := NewMySQLDatabase(sqlCfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DBTypePostgres:
		db, err := NewPostgresDatabase(sqlCfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DBTypePebble:
		db, err := NewPebbleDatabase(&PebbleConfig{DataDir: opts.DataDir})
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDBType, opts.Type)
	}
}

// nowMillis is replaced in tests to force timestamp collisions.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// nextCreatedAt keeps CreatedAt strictly increasing within one ledger even
// when the clock repeats or steps backwards.
func nextCreatedAt(last int64) int64 {
	now := nowMillis()
	if now <= last {
		return last + 1
	}
	return now
}

func validateAsset(asset *model.Asset) error {
	if asset == nil || asset.UserID == "" || asset.ID == "" {
		return ErrInvalidRecord
	}
	return nil
}

// applyQuery sorts newest first, then filters by type, then truncates.
func applyQuery(assets []*model.Asset, query model.AssetQuery) []*model.Asset {
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].CreatedAt > assets[j].CreatedAt
	})
	out := make([]*model.Asset, 0, len(assets))
	for _, a := range assets {
		if query.Type != "" && a.Type != query.Type {
			continue
		}
		out = append(out, a)
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out
}

// userLocks hands out one mutex per user for read-modify-write sequences.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) get(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}
