// Package world 把远端推送的编辑应用到本地画布。
package world

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// Recorder 接收每一次被应用的编辑位置。
type Recorder interface {
	Record(x, y int)
}

// Viewport 判断格子当前是否可见。
type Viewport interface {
	IsVisible(x, y int) bool
}

// ActivityCounter 接收在线人数。
type ActivityCounter interface {
	SetActivityCount(n int)
}

// Applier 在事件循环上按到达顺序应用远端编辑。
// 越界或颜色非法的编辑会被丢弃并计为协议异常, 画布不会被破坏。
type Applier struct {
	grid     *canvas.Grid
	recorder Recorder
	viewport Viewport
	activity ActivityCounter

	paused       bool
	flushPending bool
	anomalies    uint64
	activeCount  int
}

// NewApplier 创建 Applier。viewport 与 activity 可以为 nil。
func NewApplier(grid *canvas.Grid, recorder Recorder, viewport Viewport, activity ActivityCounter) *Applier {
	if grid == nil {
		panic("Grid cannot be nil for Applier")
	}
	if recorder == nil {
		panic("Recorder cannot be nil for Applier")
	}
	return &Applier{
		grid:     grid,
		recorder: recorder,
		viewport: viewport,
		activity: activity,
	}
}

// ApplyTile 应用一次远端写入。对同一编辑重复调用的效果与调用一次相同。
func (a *Applier) ApplyTile(x, y, color int) error {
	if !a.grid.Contains(x, y) || color < 0 || color > canvas.MaxColorIndex {
		a.anomalies++
		logrus.WithFields(logrus.Fields{
			"component": "world",
			"x":         x,
			"y":         y,
			"color":     color,
			"anomalies": a.anomalies,
		}).Warn("Dropped out-of-range remote edit")
		return fmt.Errorf("%w: tile (%d, %d) color %d", domain.ErrProtocolAnomaly, x, y, color)
	}
	if err := a.grid.SetTile(x, y, color); err != nil {
		// 上面已经校验过, 这里出错说明网格本身有问题
		a.anomalies++
		return fmt.Errorf("%w: %v", domain.ErrProtocolAnomaly, err)
	}
	a.recorder.Record(x, y)
	if !a.paused && (a.viewport == nil || a.viewport.IsVisible(x, y)) {
		a.flushPending = true
	}
	return nil
}

// ApplyBatch 按数组顺序应用编辑, 返回成功应用的数量。
// 非法的条目被跳过, 不影响后续条目。
func (a *Applier) ApplyBatch(edits []domain.TileEdit) int {
	applied := 0
	for _, e := range edits {
		if err := a.ApplyTile(e.X, e.Y, e.Color); err == nil {
			applied++
		}
	}
	return applied
}

// UpdateActivityCount 记录并转发在线人数。负数视为协议异常。
func (a *Applier) UpdateActivityCount(n int) error {
	if n < 0 {
		a.anomalies++
		return fmt.Errorf("%w: activity count %d", domain.ErrProtocolAnomaly, n)
	}
	a.activeCount = n
	if a.activity != nil {
		a.activity.SetActivityCount(n)
	}
	return nil
}

// Apply 分发一条传输层消息。连接事件不由 Applier 处理, 返回 false。
func (a *Applier) Apply(msg domain.Message) bool {
	switch m := msg.(type) {
	case domain.TileMessage:
		_ = a.ApplyTile(m.X, m.Y, m.Color)
	case domain.BatchTileMessage:
		a.ApplyBatch(m.Edits)
	case domain.ActivityMessage:
		_ = a.UpdateActivityCount(m.Count)
	default:
		return false
	}
	return true
}

// TakeFlushRequest 返回自上次调用以来是否有可见的编辑需要呈现, 并清除该请求。
func (a *Applier) TakeFlushRequest() bool {
	pending := a.flushPending
	a.flushPending = false
	return pending
}

// Pause 之后的编辑仍然写入缓冲区, 但不再请求呈现。区域选择期间使用。
func (a *Applier) Pause() { a.paused = true }

// Resume 恢复呈现请求, 并为暂停期间积累的写入请求一次呈现。
func (a *Applier) Resume() {
	if a.paused && a.grid.Dirty() {
		a.flushPending = true
	}
	a.paused = false
}

func (a *Applier) Paused() bool       { return a.paused }
func (a *Applier) Anomalies() uint64  { return a.anomalies }
func (a *Applier) ActivityCount() int { return a.activeCount }
