package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fashion-studio/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLDatabase gorm-backed ledger shared by the MySQL and Postgres drivers.
type SQLDatabase struct {
	db *gorm.DB
}

// SQLConfig SQL database configuration
type SQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewMySQLDatabase create MySQL database instance
func NewMySQLDatabase(cfg *SQLConfig) (*SQLDatabase, error) {
	return NewSQLDatabase(mysql.Open(cfg.DSN), cfg)
}

// NewPostgresDatabase create Postgres database instance
func NewPostgresDatabase(cfg *SQLConfig) (*SQLDatabase, error) {
	return NewSQLDatabase(postgres.Open(cfg.DSN), cfg)
}

// NewSQLDatabase opens any gorm dialector and migrates the asset table.
func NewSQLDatabase(dialector gorm.Dialector, cfg *SQLConfig) (*SQLDatabase, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Asset{}); err != nil {
		return nil, fmt.Errorf("failed to migrate asset table: %w", err)
	}
	return &SQLDatabase{db: db}, nil
}

func (s *SQLDatabase) SaveAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateAsset(asset); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&model.Asset{}).
			Where("user_id = ? AND id = ?", asset.UserID, asset.ID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicate, asset.ID)
		}

		var last int64
		err = tx.Model(&model.Asset{}).
			Where("user_id = ?", asset.UserID).
			Select("COALESCE(MAX(created_at), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}
		asset.Seq = 0
		asset.CreatedAt = nextCreatedAt(last)
		return tx.Create(asset).Error
	})
	// a concurrent insert can still win between the check and the create
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrDuplicate, asset.ID)
	}
	return err
}

func (s *SQLDatabase) ListAssets(ctx context.Context, userID string, query model.AssetQuery) ([]*model.Asset, error) {
	var assets []*model.Asset
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if query.Type != "" {
		q = q.Where("type = ?", query.Type)
	}
	// seq breaks ties left by concurrent inserts for one user
	q = q.Order("created_at DESC").Order("seq DESC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if err := q.Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *SQLDatabase) GetAsset(ctx context.Context, userID, id string) (*model.Asset, error) {
	var asset model.Asset
	err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *SQLDatabase) UpdateAsset(ctx context.Context, userID, id string, update model.AssetUpdate) error {
	asset, err := s.GetAsset(ctx, userID, id)
	if err != nil {
		return err
	}
	update.Apply(asset)
	return s.db.WithContext(ctx).Model(asset).Select("Tags").Updates(asset).Error
}

func (s *SQLDatabase) DeleteAsset(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Asset{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLDatabase) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
