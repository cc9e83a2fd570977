package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository"
)

// 单条 INSERT 语句中的最大记录数。
const pixelInsertBatchSize = 500

// GormPixelRepository 是 PixelRepository 接口的 GORM 实现
type GormPixelRepository struct {
	db *gorm.DB
}

// NewGormPixelRepository 创建 GormPixelRepository 实例
func NewGormPixelRepository(db *gorm.DB) *GormPixelRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPixelRepository")
	}
	return &GormPixelRepository{db: db}
}

// SaveBatch 分批插入放置记录
func (r *GormPixelRepository) SaveBatch(ctx context.Context, pixels []domain.Pixel) error {
	if len(pixels) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&pixels, pixelInsertBatchSize).Error; err != nil {
		return fmt.Errorf("gorm: failed to save pixel batch (size %d): %w", len(pixels), err)
	}
	return nil
}

// FindLatestAt 返回格子最近一次的放置记录
func (r *GormPixelRepository) FindLatestAt(ctx context.Context, x, y int) (*domain.Pixel, error) {
	var pixel domain.Pixel
	err := r.db.WithContext(ctx).
		Where("x = ? AND y = ?", x, y).
		Order("created_at DESC").
		Order("id DESC").
		First(&pixel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPixelNotFound
		}
		return nil, fmt.Errorf("gorm: find latest pixel at (%d, %d): %w", x, y, err)
	}
	return &pixel, nil
}

// LatestPerTile 返回每个格子 ID 最大 (即最后插入) 的记录
func (r *GormPixelRepository) LatestPerTile(ctx context.Context) ([]domain.Pixel, error) {
	var pixels []domain.Pixel
	latest := r.db.Model(&domain.Pixel{}).Select("MAX(id)").Group("x, y")
	err := r.db.WithContext(ctx).
		Where("id IN (?)", latest).
		Order("id ASC").
		Find(&pixels).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to load latest pixel per tile: %w", err)
	}
	return pixels, nil
}
