// Package session 把画布引擎的各个组件组装为一个会话, 并把输入事件、
// 推送消息与周期性的 tick 转换为对组件的调用。
//
// Session 的所有方法都必须在同一个事件循环 goroutine 上调用 (Load 除外, 见其说明)。
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/camera"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/client"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/hotspot"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/loop"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/world"
)

// API 是会话依赖的全部服务端接口。
type API interface {
	client.DrawAPI
	client.RegionAPI
	FetchInitialState(ctx context.Context) ([]byte, error)
	TimeToWait(ctx context.Context) (time.Duration, error)
	PixelInfo(ctx context.Context, x, y int) (domain.PixelInfo, bool, error)
}

// Listener 接收给展示层的提示。所有回调都在事件循环上执行。
type Listener interface {
	client.Listener
	OnActivityCount(n int)
	OnConnection(ev domain.ConnectionEvent)
	OnInspect(info domain.PixelInfo)
}

// NopListener 忽略所有回调。
type NopListener struct {
	client.NopListener
}

func (NopListener) OnActivityCount(int)                 {}
func (NopListener) OnConnection(domain.ConnectionEvent) {}
func (NopListener) OnInspect(domain.PixelInfo)          {}

// Config 是会话配置。
type Config struct {
	Width   int
	Height  int
	Palette []string
	Hotspot hotspot.Config
	// AutoCameraInterval > 0 时启动自动相机。
	AutoCameraInterval time.Duration
	// Admin 为 true 时使用区域写入器。
	Admin bool
}

// Deps 是会话的外部依赖。
type Deps struct {
	API        API
	Clock      clock.Clock
	Dispatcher loop.Dispatcher
	Listener   Listener
	Context    context.Context
}

// Session 持有一个画布会话的全部状态, 不使用任何全局单例。
type Session struct {
	cfg        Config
	log        *logrus.Entry
	ctx        context.Context
	api        API
	dispatcher loop.Dispatcher
	listener   Listener

	grid       *canvas.Grid
	camera     *camera.Model
	hotspots   *hotspot.Tracker
	applier    *world.Applier
	controller *client.Controller
	region     *client.RegionWriter
	cursor     client.Cursor

	connState  domain.ConnState
	flushLocal bool
}

// New 组装会话。控制器初始为 Disabled, 需要 Load 之后才能绘制。
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.API == nil {
		return nil, errors.New("session: API is required")
	}
	if deps.Clock == nil || deps.Dispatcher == nil {
		return nil, errors.New("session: clock and dispatcher are required")
	}
	if deps.Listener == nil {
		deps.Listener = NopListener{}
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if cfg.Palette == nil {
		cfg.Palette = canvas.DefaultPalette
	}
	if cfg.Hotspot.Capacity == 0 {
		cfg.Hotspot = hotspot.DefaultConfig()
	}

	palette, err := canvas.NewPalette(cfg.Palette)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	grid, err := canvas.NewGrid(cfg.Width, cfg.Height, palette)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		cfg:        cfg,
		log:        logrus.WithField("component", "session"),
		ctx:        deps.Context,
		api:        deps.API,
		dispatcher: deps.Dispatcher,
		listener:   deps.Listener,
		grid:       grid,
		camera:     camera.New(cfg.Width, cfg.Height),
		connState:  domain.ConnDisconnected,
	}
	s.hotspots = hotspot.New(cfg.Hotspot, deps.Clock, s.focusHotspot)
	s.applier = world.NewApplier(grid, s.hotspots, s.camera, activityFunc(s.listener.OnActivityCount))

	var writer client.TileWriter
	if cfg.Admin {
		s.region = client.NewRegionWriter(deps.API, s.applier)
		writer = s.region
	} else {
		writer = client.NewNormalWriter(grid, s.hotspots, deps.API)
	}
	s.controller = client.NewController(grid, writer, deps.Clock, deps.Dispatcher,
		client.WithListener(deps.Listener),
		client.WithContext(deps.Context),
	)

	if cfg.AutoCameraInterval > 0 {
		s.hotspots.Enable(cfg.AutoCameraInterval)
	}
	return s, nil
}

type activityFunc func(int)

func (f activityFunc) SetActivityCount(n int) { f(n) }

// Load 获取初始画布与剩余冷却时间, 然后启用交互。
// 它会阻塞在网络请求上, 应在事件循环启动之前调用。
func (s *Session) Load(ctx context.Context) error {
	bitmap, err := s.api.FetchInitialState(ctx)
	if err != nil {
		return fmt.Errorf("session: fetch initial state: %w", err)
	}
	if err := s.grid.BulkLoad(bitmap); err != nil {
		return fmt.Errorf("session: load initial state: %w", err)
	}

	wait, err := s.api.TimeToWait(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to fetch time to wait, assuming none")
		wait = 0
	}
	s.controller.StartCooldown(wait)
	s.controller.Enable()
	s.log.WithFields(logrus.Fields{
		"width":  s.grid.Width(),
		"height": s.grid.Height(),
		"wait":   wait.String(),
	}).Info("Session loaded")
	return nil
}

// HandleMessage 处理一条来自传输层的消息。
func (s *Session) HandleMessage(msg domain.Message) {
	if ev, ok := msg.(domain.ConnectionEvent); ok {
		if ev.State != s.connState {
			s.log.WithField("state", ev.State.String()).Info("Connection state changed")
		}
		s.connState = ev.State
		s.listener.OnConnection(ev)
		return
	}
	s.applier.Apply(msg)
}

// Tick 推进相机插值, 并在需要时呈现画布。返回本次是否有可见变化。
func (s *Session) Tick() bool {
	moved := s.camera.Advance(camera.ZoomLerpSpeed, camera.PanLerpSpeed)
	requested := s.applier.TakeFlushRequest()
	flushed := false
	if requested || s.flushLocal || moved {
		flushed = s.grid.Flush()
	}
	s.flushLocal = false
	return moved || flushed
}

// SetContainerSize 记录视口尺寸。
func (s *Session) SetContainerSize(w, h float64) {
	s.camera.SetContainerSize(w, h)
	s.flushLocal = true
}

// HandlePointerDown 记录指针按下 (容器空间)。
func (s *Session) HandlePointerDown(cx, cy float64) {
	s.cursor.Down(cx, cy)
}

// HandlePointerMove 在按下状态下拖动画布 (容器空间)。
func (s *Session) HandlePointerMove(cx, cy float64) {
	if dx, dy, dragging := s.cursor.Move(cx, cy); dragging {
		s.camera.PanBy(dx, dy)
	}
}

// HandlePointerUp 记录指针抬起 (容器空间)。
func (s *Session) HandlePointerUp(cx, cy float64) {
	s.cursor.Up(cx, cy)
}

// HandleClick 处理画布空间中的左键点击:
// 拖拽后的点击被忽略; 缩小状态下放大并居中到该格子; 手持颜色时绘制; 否则查询格子信息。
func (s *Session) HandleClick(x, y int) error {
	if s.cursor.DidDrag() {
		return nil
	}
	if !s.camera.ZoomedIn() {
		s.camera.ToggleZoomAt(s.camera.OffsetFromCameraLocation(float64(x), float64(y)))
		return nil
	}
	if _, holding := s.controller.HeldColor(); holding {
		if err := s.controller.Draw(x, y); err != nil {
			return err
		}
		s.flushLocal = true
		return nil
	}
	s.inspect(x, y)
	return nil
}

// HandleContainerClick 把容器空间的点击换算为格子坐标后交给 HandleClick。
func (s *Session) HandleContainerClick(cx, cy float64) error {
	p := s.camera.LocationFromCursorPosition(cx, cy)
	return s.HandleClick(p.X, p.Y)
}

// HandleRightClick 处理画布空间中的右键点击: 手持颜色时放下颜色, 否则切换缩放。
func (s *Session) HandleRightClick(x, y int) {
	if _, holding := s.controller.HeldColor(); holding {
		s.ClearColor()
		return
	}
	s.camera.ToggleZoomAt(s.camera.OffsetFromCameraLocation(float64(x), float64(y)))
}

// SelectColor 拿起一个颜色。
func (s *Session) SelectColor(index int) error {
	return s.controller.SelectColor(index)
}

// ClearColor 放下颜色, 并放弃未完成的区域选择。
func (s *Session) ClearColor() {
	s.controller.ClearColor()
	if s.region != nil {
		s.region.Cancel()
	}
}

// ToggleZoom 在两个缩放级别之间切换, 放大时保持当前中心。
func (s *Session) ToggleZoom() bool {
	return s.camera.ToggleZoom()
}

// SetAutoCamera 启用或停用自动相机。
func (s *Session) SetAutoCamera(enabled bool, interval time.Duration) {
	if enabled {
		s.hotspots.Enable(interval)
		return
	}
	s.hotspots.Disable()
}

// ApplyDeepLink 把相机立即移动到定位片段指定的格子 (超出范围时取边界)。
func (s *Session) ApplyDeepLink(fragment string) bool {
	p, ok := camera.ParseDeepLink(fragment, s.grid.Width(), s.grid.Height())
	if !ok {
		return false
	}
	s.camera.SetCameraLocation(float64(p.X), float64(p.Y))
	s.log.WithFields(logrus.Fields{"x": p.X, "y": p.Y}).Debug("Applied deep link")
	return true
}

// DeepLink 返回当前相机中心对应的定位片段。
func (s *Session) DeepLink() string {
	pan := s.camera.TargetPan()
	w, h := s.camera.CanvasSize()
	p := domain.Point{X: int(float64(w)/2 - pan.X), Y: int(float64(h)/2 - pan.Y)}
	return camera.FormatDeepLink(p)
}

// Close 停止会话持有的定时器并禁用交互。
func (s *Session) Close() {
	s.hotspots.Disable()
	s.controller.Disable()
}

// focusHotspot 是自动相机的回调: 把相机目标移到最活跃的位置。
func (s *Session) focusHotspot(p domain.Point) {
	s.camera.SetTargetCameraLocation(float64(p.X), float64(p.Y))
}

// inspect 查询格子的放置信息, 成功后把相机移到该格子并通知展示层。
func (s *Session) inspect(x, y int) {
	if !s.grid.Contains(x, y) {
		return
	}
	ctx := s.ctx
	s.dispatcher.Go(func() func() {
		info, ok, err := s.api.PixelInfo(ctx, x, y)
		return func() {
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{"x": x, "y": y}).Warn("Failed to inspect tile")
				return
			}
			if !ok {
				return
			}
			s.camera.SetTargetCameraLocation(float64(x), float64(y))
			s.listener.OnInspect(info)
		}
	})
}

func (s *Session) Grid() *canvas.Grid             { return s.grid }
func (s *Session) Camera() *camera.Model          { return s.camera }
func (s *Session) Hotspots() *hotspot.Tracker     { return s.hotspots }
func (s *Session) Applier() *world.Applier        { return s.applier }
func (s *Session) Controller() *client.Controller { return s.controller }
func (s *Session) ConnState() domain.ConnState    { return s.connState }
