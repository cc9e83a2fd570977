package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// 单条 BITFIELD 命令携带的最大写入数, 过大的命令会阻塞 Redis。
const maxBitfieldOps = 1000

// RedisBoardRepository 是 BoardRepository 接口的 Redis 实现。
// 画布保存在一个字符串 key 中, 每格 4 bit, 偏移为 y*width + x。
type RedisBoardRepository struct {
	client    *redis.Client
	keyPrefix string
	width     int
	height    int
}

// NewRedisBoardRepository 创建 RedisBoardRepository 实例
func NewRedisBoardRepository(client *redis.Client, keyPrefix string, width, height int) *RedisBoardRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisBoardRepository")
	}
	if width <= 0 || height <= 0 {
		panic("board dimensions must be positive for RedisBoardRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "place:"
	}
	return &RedisBoardRepository{
		client:    client,
		keyPrefix: keyPrefix,
		width:     width,
		height:    height,
	}
}

// --- Key Generation Helpers ---
func (r *RedisBoardRepository) boardKey() string {
	return r.keyPrefix + "board"
}

func (r *RedisBoardRepository) cooldownKey(userID uint) string {
	return fmt.Sprintf("%scooldown:%d", r.keyPrefix, userID)
}

func (r *RedisBoardRepository) updatesChannel() string {
	return r.keyPrefix + "updates"
}

func (r *RedisBoardRepository) offset(x, y int) (string, error) {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return "", fmt.Errorf("redis: %w: (%d, %d)", domain.ErrOutOfBounds, x, y)
	}
	return fmt.Sprintf("#%d", y*r.width+x), nil
}

// --- BoardRepository Interface Implementation ---

// SetPixel 写入单个格子的颜色。
func (r *RedisBoardRepository) SetPixel(ctx context.Context, edit domain.TileEdit) error {
	return r.SetPixels(ctx, []domain.TileEdit{edit})
}

// SetPixels 使用 BITFIELD SET u4 写入多个格子, 超过 maxBitfieldOps 时分批放进同一个 Pipeline。
func (r *RedisBoardRepository) SetPixels(ctx context.Context, edits []domain.TileEdit) error {
	if len(edits) == 0 {
		return nil
	}
	key := r.boardKey()
	pipe := r.client.Pipeline()
	args := make([]interface{}, 0, 4*min(len(edits), maxBitfieldOps))
	for i, e := range edits {
		off, err := r.offset(e.X, e.Y)
		if err != nil {
			return err
		}
		args = append(args, "SET", "u4", off, e.Color)
		if (i+1)%maxBitfieldOps == 0 {
			pipe.BitField(ctx, key, args...)
			args = make([]interface{}, 0, 4*maxBitfieldOps)
		}
	}
	if len(args) > 0 {
		pipe.BitField(ctx, key, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to set %d pixels on %s: %w", len(edits), key, err)
	}
	return nil
}

// GetBitmap 读取整个画布位图, 不足的部分补 0 (背景色)。
func (r *RedisBoardRepository) GetBitmap(ctx context.Context) ([]byte, error) {
	key := r.boardKey()
	size := (r.width*r.height + 1) / 2
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: failed to get bitmap from %s: %w", key, err)
	}
	if len(raw) >= size {
		return raw[:size], nil
	}
	out := make([]byte, size)
	copy(out, raw)
	return out, nil
}

// AcquireCooldown 使用 SET NX PX 原子地开始冷却。
func (r *RedisBoardRepository) AcquireCooldown(ctx context.Context, userID uint, d time.Duration) (bool, error) {
	key := r.cooldownKey(userID)
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), d).Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to acquire cooldown for user %d on %s: %w", userID, key, err)
	}
	return ok, nil
}

// ResetCooldown 无条件地把用户冷却设置为 d, 覆盖尚未到期的冷却。
func (r *RedisBoardRepository) ResetCooldown(ctx context.Context, userID uint, d time.Duration) error {
	key := r.cooldownKey(userID)
	if err := r.client.Set(ctx, key, time.Now().Unix(), d).Err(); err != nil {
		return fmt.Errorf("redis: failed to reset cooldown for user %d on %s: %w", userID, key, err)
	}
	return nil
}

// ClearCooldown 删除冷却 key, key 不存在时不报错。
func (r *RedisBoardRepository) ClearCooldown(ctx context.Context, userID uint) error {
	key := r.cooldownKey(userID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to clear cooldown for user %d on %s: %w", userID, key, err)
	}
	return nil
}

// CooldownRemaining 返回冷却 key 的剩余 TTL。
func (r *RedisBoardRepository) CooldownRemaining(ctx context.Context, userID uint) (time.Duration, error) {
	key := r.cooldownKey(userID)
	ttl, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to get cooldown ttl for user %d on %s: %w", userID, key, err)
	}
	// -2 表示 key 不存在, -1 表示没有过期时间
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// CheckRateLimit 检查给定 key 的请求频率是否超限。
func (r *RedisBoardRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	key = r.keyPrefix + key
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}

// PublishUpdate 把推送消息发布到更新频道。
func (r *RedisBoardRepository) PublishUpdate(ctx context.Context, payload []byte) error {
	channel := r.updatesChannel()
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":      channel,
			"payload_size": len(payload),
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish update to channel %s: %w", channel, err)
	}
	return nil
}

// SubscribeUpdates 订阅更新频道。订阅确认之后才返回, ctx 结束时关闭订阅与返回的通道。
func (r *RedisBoardRepository) SubscribeUpdates(ctx context.Context) (<-chan []byte, error) {
	channel := r.updatesChannel()
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to channel %s: %w", channel, err)
	}

	out := make(chan []byte, 256)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
