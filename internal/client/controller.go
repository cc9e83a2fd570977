// Package client 实现本地用户的绘制准入状态机。
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/loop"
)

// State 是准入状态机的状态。
type State int

const (
	Disabled State = iota
	Idle
	Holding
	Cooling
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Cooling:
		return "cooling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DrawResult 是绘制接口成功时的返回, Wait 为服务端要求的冷却时间。
type DrawResult struct {
	Wait time.Duration
}

// DrawAPI 提交单格绘制。服务端给出等待时间的失败应返回 *domain.RateLimitError。
type DrawAPI interface {
	SubmitDraw(ctx context.Context, x, y, color int) (DrawResult, error)
}

// Listener 接收给界面使用的状态提示。所有回调都在事件循环上执行。
type Listener interface {
	OnStateChange(from, to State)
	OnCooldown(deadline time.Time)
	OnDrawResolved(err error)
}

// NopListener 忽略所有回调, 可嵌入只关心部分回调的实现中。
type NopListener struct{}

func (NopListener) OnStateChange(from, to State)  {}
func (NopListener) OnCooldown(deadline time.Time) {}
func (NopListener) OnDrawResolved(err error)      {}

const defaultSubmitTimeout = 15 * time.Second

// Controller 是绘制准入状态机: Disabled / Idle / Holding / Cooling。
//
// 绘制在本地乐观地立即生效, 网络提交在事件循环之外执行,
// 完成后的处理投递回事件循环。失败时不回滚本地写入,
// 最终一致性依赖远端推送。Controller 只能在事件循环上调用。
type Controller struct {
	grid       *canvas.Grid
	writer     TileWriter
	clk        clock.Clock
	dispatcher loop.Dispatcher
	listener   Listener

	baseCtx       context.Context
	submitTimeout time.Duration

	enabled       bool
	holding       bool
	heldColor     int
	admissionOpen bool
	deadline      time.Time
	timer         clock.Timer
	gen           int
	inFlight      int
}

// Option 配置 Controller。
type Option func(*Controller)

// WithListener 设置状态提示的接收者。
func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listener = l
		}
	}
}

// WithContext 设置提交请求使用的父 context。
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithSubmitTimeout 设置单次提交的超时时间。
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.submitTimeout = d
		}
	}
}

// NewController 创建一个处于 Disabled 状态的 Controller。
func NewController(grid *canvas.Grid, writer TileWriter, clk clock.Clock, dispatcher loop.Dispatcher, opts ...Option) *Controller {
	if grid == nil {
		panic("Grid cannot be nil for Controller")
	}
	if writer == nil {
		panic("TileWriter cannot be nil for Controller")
	}
	if clk == nil {
		panic("Clock cannot be nil for Controller")
	}
	if dispatcher == nil {
		panic("Dispatcher cannot be nil for Controller")
	}
	c := &Controller{
		grid:          grid,
		writer:        writer,
		clk:           clk,
		dispatcher:    dispatcher,
		listener:      NopListener{},
		baseCtx:       context.Background(),
		submitTimeout: defaultSubmitTimeout,
		admissionOpen: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 由 enabled / admissionOpen / holding 推导得出。
func (c *Controller) State() State {
	switch {
	case !c.enabled:
		return Disabled
	case !c.admissionOpen:
		return Cooling
	case c.holding:
		return Holding
	default:
		return Idle
	}
}

// mutate 执行 fn 并在状态发生变化时通知 listener。
func (c *Controller) mutate(fn func()) {
	before := c.State()
	fn()
	if after := c.State(); after != before {
		logrus.WithFields(logrus.Fields{
			"component": "interaction",
			"from":      before.String(),
			"to":        after.String(),
		}).Debug("Interaction state changed")
		c.listener.OnStateChange(before, after)
	}
}

// Enable 允许交互。如果冷却仍在进行, 状态为 Cooling。
func (c *Controller) Enable() {
	c.mutate(func() { c.enabled = true })
}

// Disable 禁止交互并丢弃手中的颜色。进行中的提交仍会在完成时设置冷却。
func (c *Controller) Disable() {
	c.mutate(func() {
		c.enabled = false
		c.holding = false
	})
}

// SelectColor 拿起一个颜色。Disabled 或 Cooling 时返回 ErrAdmissionClosed 且不修改任何状态。
func (c *Controller) SelectColor(index int) error {
	switch c.State() {
	case Disabled, Cooling:
		return domain.ErrAdmissionClosed
	}
	if index < 0 || index > canvas.MaxColorIndex {
		return fmt.Errorf("%w: %d", domain.ErrInvalidColor, index)
	}
	c.mutate(func() {
		c.holding = true
		c.heldColor = index
	})
	return nil
}

// ClearColor 放下手中的颜色。没有颜色时什么也不做。
func (c *Controller) ClearColor() {
	if !c.holding {
		return
	}
	c.mutate(func() { c.holding = false })
}

// HeldColor 返回手中的颜色。
func (c *Controller) HeldColor() (int, bool) {
	return c.heldColor, c.holding
}

// Draw 在 (x, y) 放置手中的颜色。
//
// 前置条件不满足时返回 *domain.DrawRejectedError 且不修改状态。
// 写入器不产生提交 (例如区域选择的第一个角点) 时返回 nil 且状态不变。
func (c *Controller) Draw(x, y int) error {
	switch c.State() {
	case Disabled:
		return &domain.DrawRejectedError{Reason: domain.RejectDisabled}
	case Cooling:
		return &domain.DrawRejectedError{Reason: domain.RejectCoolingDown}
	case Idle:
		return &domain.DrawRejectedError{Reason: domain.RejectNoColor}
	}
	if !c.grid.Contains(x, y) {
		return &domain.DrawRejectedError{Reason: domain.RejectOutOfBounds}
	}

	color := c.heldColor
	submit := c.writer.Prepare(x, y, color)
	if submit == nil {
		return nil
	}

	c.mutate(func() {
		c.admissionOpen = false
		c.holding = false
		c.deadline = time.Time{}
		c.gen++
	})
	c.inFlight++

	logCtx := logrus.WithFields(logrus.Fields{
		"component": "interaction",
		"x":         x,
		"y":         y,
		"color":     color,
	})
	logCtx.Debug("Submitting draw")

	ctx, timeout := c.baseCtx, c.submitTimeout
	c.dispatcher.Go(func() func() {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := submit(reqCtx)
		return func() { c.resolve(logCtx, res, err) }
	})
	return nil
}

// resolve 在事件循环上处理提交结果, 无论 Controller 此时是否被禁用都会执行。
func (c *Controller) resolve(logCtx *logrus.Entry, res DrawResult, err error) {
	c.inFlight--
	var rl *domain.RateLimitError
	switch {
	case err == nil:
		c.StartCooldown(res.Wait)
	case errors.As(err, &rl):
		logCtx.WithField("wait", rl.Wait.String()).Info("Draw rejected by server, cooling down")
		c.StartCooldown(rl.Wait)
	default:
		err = fmt.Errorf("%w: %v", domain.ErrTransientAPIFailure, err)
		logCtx.WithError(err).Warn("Draw submission failed, reopening admission")
		c.reopen()
	}
	c.listener.OnDrawResolved(err)
}

// StartCooldown 关闭准入并在 wait 之后重新打开。新的冷却会替换尚未触发的旧定时器。
// wait <= 0 时立即打开准入。
func (c *Controller) StartCooldown(wait time.Duration) {
	if wait <= 0 {
		c.reopen()
		return
	}
	c.stopTimer()
	c.gen++
	gen := c.gen
	deadline := c.clk.Now().Add(wait)
	c.mutate(func() {
		c.admissionOpen = false
		c.deadline = deadline
	})
	c.timer = c.clk.AfterFunc(wait, func() {
		if gen != c.gen {
			return
		}
		c.timer = nil
		c.reopen()
	})
	c.listener.OnCooldown(deadline)
}

func (c *Controller) reopen() {
	c.stopTimer()
	c.gen++
	c.mutate(func() {
		c.admissionOpen = true
		c.deadline = time.Time{}
	})
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// AdmissionOpen 报告是否允许提交新的绘制。
func (c *Controller) AdmissionOpen() bool { return c.admissionOpen }

// CooldownDeadline 返回冷却结束时间, 没有冷却时为零值。
func (c *Controller) CooldownDeadline() time.Time { return c.deadline }

// CooldownRemaining 返回距离冷却结束的剩余时间。
func (c *Controller) CooldownRemaining() time.Duration {
	if c.admissionOpen || c.deadline.IsZero() {
		return 0
	}
	if d := c.deadline.Sub(c.clk.Now()); d > 0 {
		return d
	}
	return 0
}

// InFlight 返回尚未完成的提交数量。
func (c *Controller) InFlight() int { return c.inFlight }
