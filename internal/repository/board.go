package repository

import (
	"context"
	"time"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// BoardRepository 定义了实时画布状态相关的操作, 通常由 Redis 实现。
type BoardRepository interface {
	// === Board State ===

	// SetPixel 写入单个格子的颜色 (4 bit)。
	SetPixel(ctx context.Context, edit domain.TileEdit) error

	// SetPixels 在一次往返中写入多个格子。
	SetPixels(ctx context.Context, edits []domain.TileEdit) error

	// GetBitmap 返回整个画布的 4 bit 打包位图, 长度至少为 ceil(width*height/2)。
	GetBitmap(ctx context.Context) ([]byte, error)

	// === Cooldown ===

	// AcquireCooldown 在用户没有进行中的冷却时开始一段长度为 d 的冷却并返回 true;
	// 冷却仍在进行时返回 false 且不做修改。
	AcquireCooldown(ctx context.Context, userID uint, d time.Duration) (bool, error)

	// ResetCooldown 无条件地把用户冷却设置为 d。
	ResetCooldown(ctx context.Context, userID uint, d time.Duration) error

	// ClearCooldown 删除用户的冷却。
	ClearCooldown(ctx context.Context, userID uint) error

	// CooldownRemaining 返回用户冷却的剩余时间, 没有冷却时返回 0。
	CooldownRemaining(ctx context.Context, userID uint) (time.Duration, error)

	// === Rate Limiting ===

	// CheckRateLimit 检查给定 key 的请求频率是否超限, 并递增计数。超限时返回 true。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// === PubSub ===

	// PublishUpdate 把一条已编码的推送消息发布给所有服务实例。
	PublishUpdate(ctx context.Context, payload []byte) error

	// SubscribeUpdates 订阅推送消息, ctx 结束时返回的通道被关闭。
	SubscribeUpdates(ctx context.Context) (<-chan []byte, error)
}
