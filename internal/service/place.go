package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/dto"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository"
)

const (
	// DefaultCooldown 是两次放置之间的默认间隔
	DefaultCooldown = 5 * time.Minute
	// CooldownGrace 内剩余的冷却不拒绝请求, 抵消客户端计时误差。
	CooldownGrace = 2 * time.Second
)

// Actor 是发起请求的用户, 来自 JWT 声明。
type Actor struct {
	ID       uint
	Username string
	IsAdmin  bool
}

// PixelEnqueuer 把已接受的放置投递到后台持久化队列
type PixelEnqueuer interface {
	EnqueuePixels(ctx context.Context, pixels []domain.Pixel) error
}

// PlaceConfig 是画布的尺寸与冷却设置
type PlaceConfig struct {
	Width    int
	Height   int
	Cooldown time.Duration
}

// PlaceService 实现绘制、冷却与画布查询。
// 实时画布保存在 BoardRepository (Redis), 历史由 worker 异步写入 PixelRepository (MySQL)。
type PlaceService struct {
	board    repository.BoardRepository
	pixels   repository.PixelRepository
	enqueuer PixelEnqueuer
	cfg      PlaceConfig
	now      func() time.Time
}

// NewPlaceService 创建 PlaceService 实例
func NewPlaceService(board repository.BoardRepository, pixels repository.PixelRepository, enqueuer PixelEnqueuer, cfg PlaceConfig) *PlaceService {
	if board == nil {
		panic("BoardRepository cannot be nil for PlaceService")
	}
	if pixels == nil {
		panic("PixelRepository cannot be nil for PlaceService")
	}
	if enqueuer == nil {
		panic("PixelEnqueuer cannot be nil for PlaceService")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		panic(fmt.Sprintf("invalid canvas size %dx%d for PlaceService", cfg.Width, cfg.Height))
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &PlaceService{board: board, pixels: pixels, enqueuer: enqueuer, cfg: cfg, now: time.Now}
}

// Width 返回画布宽度
func (s *PlaceService) Width() int { return s.cfg.Width }

// Height 返回画布高度
func (s *PlaceService) Height() int { return s.cfg.Height }

func (s *PlaceService) validate(x, y, color int) error {
	if x < 0 || y < 0 || x >= s.cfg.Width || y >= s.cfg.Height {
		return ErrInvalidCoordinates
	}
	if color < 0 || color > canvas.MaxColorIndex {
		return ErrInvalidColor
	}
	return nil
}

// Draw 放置一个像素并开始冷却, 返回新的冷却时长。
// 冷却剩余超过 CooldownGrace 时返回 *CooldownError。
func (s *PlaceService) Draw(ctx context.Context, actor Actor, x, y, color int) (time.Duration, error) {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": actor.ID, "x": x, "y": y, "color": color})

	if err := s.validate(x, y, color); err != nil {
		return 0, err
	}

	if err := s.startCooldown(ctx, actor.ID, logCtx); err != nil {
		return 0, err
	}

	edit := domain.TileEdit{X: x, Y: y, Color: color}
	if err := s.board.SetPixel(ctx, edit); err != nil {
		logCtx.WithError(err).Error("Failed to write pixel to board")
		// 像素没有写入, 不能让用户为失败的请求等待冷却
		if clearErr := s.board.ClearCooldown(ctx, actor.ID); clearErr != nil {
			logCtx.WithError(clearErr).Error("Failed to clear cooldown after failed write")
		}
		return 0, ErrInternalServer
	}

	s.persist(ctx, []domain.Pixel{s.pixel(actor, edit)}, logCtx)

	if payload, err := dto.EncodeTile(edit, actor.Username); err != nil {
		logCtx.WithError(err).Error("Failed to encode tile update")
	} else if err := s.board.PublishUpdate(ctx, payload); err != nil {
		// 画布已经写入, 其他客户端会在下次全量加载时看到这次修改
		logCtx.WithError(err).Error("Failed to publish tile update")
	}

	logCtx.Debug("Pixel placed")
	return s.cfg.Cooldown, nil
}

func (s *PlaceService) startCooldown(ctx context.Context, userID uint, logCtx *logrus.Entry) error {
	acquired, err := s.board.AcquireCooldown(ctx, userID, s.cfg.Cooldown)
	if err != nil {
		logCtx.WithError(err).Error("Failed to acquire cooldown")
		return ErrInternalServer
	}
	if acquired {
		return nil
	}

	remaining, err := s.board.CooldownRemaining(ctx, userID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read cooldown")
		return ErrInternalServer
	}
	if remaining > CooldownGrace {
		logCtx.WithField("wait", remaining).Debug("Draw rejected: cooldown active")
		return &CooldownError{Wait: remaining}
	}

	if err := s.board.ResetCooldown(ctx, userID, s.cfg.Cooldown); err != nil {
		logCtx.WithError(err).Error("Failed to reset cooldown")
		return ErrInternalServer
	}
	return nil
}

// DrawRect 用同一种颜色填充矩形区域, 仅管理员可用, 不受冷却限制。
// 矩形必须完全落在画布内。
func (s *PlaceService) DrawRect(ctx context.Context, actor Actor, rect domain.Rect, color int) error {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": actor.ID, "rect": rect, "color": color})

	if !actor.IsAdmin {
		logCtx.Warn("Non-admin attempted region fill")
		return ErrForbidden
	}
	if rect.Empty() {
		return fmt.Errorf("%w: empty rectangle", ErrInvalidInput)
	}
	if err := s.validate(rect.X, rect.Y, color); err != nil {
		return err
	}
	if err := s.validate(rect.X+rect.W-1, rect.Y+rect.H-1, color); err != nil {
		return err
	}

	edits := rect.Edits(color)
	if err := s.board.SetPixels(ctx, edits); err != nil {
		logCtx.WithError(err).Error("Failed to write region to board")
		return ErrInternalServer
	}

	pixels := make([]domain.Pixel, len(edits))
	for i, e := range edits {
		pixels[i] = s.pixel(actor, e)
	}
	s.persist(ctx, pixels, logCtx)

	if payload, err := dto.EncodeBatch(edits, actor.Username); err != nil {
		logCtx.WithError(err).Error("Failed to encode batch update")
	} else if err := s.board.PublishUpdate(ctx, payload); err != nil {
		logCtx.WithError(err).Error("Failed to publish batch update")
	}

	logCtx.WithField("tiles", len(edits)).Info("Region filled")
	return nil
}

func (s *PlaceService) pixel(actor Actor, e domain.TileEdit) domain.Pixel {
	return domain.Pixel{
		UserID:    actor.ID,
		Username:  actor.Username,
		X:         e.X,
		Y:         e.Y,
		Color:     e.Color,
		CreatedAt: s.now().UTC(),
	}
}

func (s *PlaceService) persist(ctx context.Context, pixels []domain.Pixel, logCtx *logrus.Entry) {
	if err := s.enqueuer.EnqueuePixels(ctx, pixels); err != nil {
		// 历史缺失不影响实时画布
		logCtx.WithError(err).Error("Failed to enqueue pixel persistence")
	}
}

// TimeToWait 返回用户剩余的冷却时间
func (s *PlaceService) TimeToWait(ctx context.Context, userID uint) (time.Duration, error) {
	remaining, err := s.board.CooldownRemaining(ctx, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to read cooldown")
		return 0, ErrInternalServer
	}
	return remaining, nil
}

// Bitmap 返回整个画布的 4 bit 打包位图
func (s *PlaceService) Bitmap(ctx context.Context) ([]byte, error) {
	bitmap, err := s.board.GetBitmap(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to read board bitmap")
		return nil, ErrInternalServer
	}
	return bitmap, nil
}

// PixelInfo 返回格子最近一次放置的信息, 从未被放置过的格子返回 nil。
func (s *PlaceService) PixelInfo(ctx context.Context, x, y int) (*domain.PixelInfo, error) {
	if x < 0 || y < 0 || x >= s.cfg.Width || y >= s.cfg.Height {
		return nil, ErrInvalidCoordinates
	}
	p, err := s.pixels.FindLatestAt(ctx, x, y)
	if err != nil {
		if errors.Is(err, repository.ErrPixelNotFound) {
			return nil, nil
		}
		logrus.WithFields(logrus.Fields{"x": x, "y": y}).WithError(err).Error("Failed to find pixel")
		return nil, ErrInternalServer
	}
	return &domain.PixelInfo{
		X:         p.X,
		Y:         p.Y,
		Color:     p.Color,
		Username:  p.Username,
		Timestamp: p.CreatedAt,
	}, nil
}

// RestoreBoard 用 MySQL 中每个格子最近的记录重建 Redis 画布,
// 用于 Redis 数据丢失后的启动。返回写入的格子数。
func (s *PlaceService) RestoreBoard(ctx context.Context) (int, error) {
	pixels, err := s.pixels.LatestPerTile(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pixel history: %w", err)
	}

	edits := make([]domain.TileEdit, 0, len(pixels))
	for _, p := range pixels {
		if s.validate(p.X, p.Y, p.Color) != nil {
			// 画布缩小后旧记录可能越界
			continue
		}
		edits = append(edits, domain.TileEdit{X: p.X, Y: p.Y, Color: p.Color})
	}
	if len(edits) == 0 {
		return 0, nil
	}
	if err := s.board.SetPixels(ctx, edits); err != nil {
		return 0, fmt.Errorf("failed to restore board: %w", err)
	}
	logrus.WithField("tiles", len(edits)).Info("Board restored from pixel history")
	return len(edits), nil
}

// BroadcastActivity 发布在线人数
func (s *PlaceService) BroadcastActivity(ctx context.Context, count int) error {
	payload, err := dto.EncodeActivity(count)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	if err := s.board.PublishUpdate(ctx, payload); err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}
	return nil
}
