package repository

import (
	"context"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// PixelRepository 定义了像素放置历史的持久化操作 (通常由 MySQL 实现)。
type PixelRepository interface {
	// SaveBatch 批量保存放置记录。
	SaveBatch(ctx context.Context, pixels []domain.Pixel) error

	// FindLatestAt 返回格子 (x, y) 最近一次的放置记录, 没有记录时返回 ErrPixelNotFound。
	FindLatestAt(ctx context.Context, x, y int) (*domain.Pixel, error)

	// LatestPerTile 返回每个被放置过的格子的最近一次记录, 用于重建实时画布。
	LatestPerTile(ctx context.Context) ([]domain.Pixel, error)
}
