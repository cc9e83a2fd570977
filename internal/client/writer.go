package client

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// Submission 是一次需要在事件循环之外执行的网络提交。
type Submission func(ctx context.Context) (DrawResult, error)

// TileWriter 决定一次 Draw 在本地产生什么效果、向服务端提交什么。
// Prepare 在事件循环上调用; 返回 nil 表示这次调用没有产生提交。
type TileWriter interface {
	Prepare(x, y, color int) Submission
}

// Recorder 记录本地写入的位置。
type Recorder interface {
	Record(x, y int)
}

// NormalWriter 乐观地写入本地画布并提交单格绘制。
type NormalWriter struct {
	grid     *canvas.Grid
	recorder Recorder
	api      DrawAPI
}

// NewNormalWriter 创建 NormalWriter。recorder 可以为 nil。
func NewNormalWriter(grid *canvas.Grid, recorder Recorder, api DrawAPI) *NormalWriter {
	if grid == nil {
		panic("Grid cannot be nil for NormalWriter")
	}
	if api == nil {
		panic("DrawAPI cannot be nil for NormalWriter")
	}
	return &NormalWriter{grid: grid, recorder: recorder, api: api}
}

func (w *NormalWriter) Prepare(x, y, color int) Submission {
	if err := w.grid.SetTile(x, y, color); err != nil {
		return func(context.Context) (DrawResult, error) { return DrawResult{}, err }
	}
	if w.recorder != nil {
		w.recorder.Record(x, y)
	}
	return func(ctx context.Context) (DrawResult, error) {
		return w.api.SubmitDraw(ctx, x, y, color)
	}
}

// RegionAPI 提交矩形填充 (管理员)。
type RegionAPI interface {
	DrawRect(ctx context.Context, rect domain.Rect, color int) (DrawResult, error)
}

// Pauser 在区域选择期间暂停远端编辑的呈现。
type Pauser interface {
	Pause()
	Resume()
}

// RegionWriter 用两次点击选出矩形并整体提交。
// 第一次调用记录角点, 第二次调用以两个角点构成的矩形提交; 本地不做乐观写入,
// 结果通过远端的批量推送到达。
type RegionWriter struct {
	api    RegionAPI
	pauser Pauser
	anchor *domain.Point
}

// NewRegionWriter 创建 RegionWriter。pauser 可以为 nil。
func NewRegionWriter(api RegionAPI, pauser Pauser) *RegionWriter {
	if api == nil {
		panic("RegionAPI cannot be nil for RegionWriter")
	}
	return &RegionWriter{api: api, pauser: pauser}
}

func (w *RegionWriter) Prepare(x, y, color int) Submission {
	if w.anchor == nil {
		w.anchor = &domain.Point{X: x, Y: y}
		if w.pauser != nil {
			w.pauser.Pause()
		}
		logrus.WithFields(logrus.Fields{"component": "region_writer", "x": x, "y": y}).Debug("Region anchor set")
		return nil
	}
	rect := domain.RectFromCorners(*w.anchor, domain.Point{X: x, Y: y})
	w.Cancel()
	return func(ctx context.Context) (DrawResult, error) {
		return w.api.DrawRect(ctx, rect, color)
	}
}

// Anchor 返回已选的第一个角点。
func (w *RegionWriter) Anchor() (domain.Point, bool) {
	if w.anchor == nil {
		return domain.Point{}, false
	}
	return *w.anchor, true
}

// Cancel 放弃当前的区域选择。
func (w *RegionWriter) Cancel() {
	if w.anchor == nil {
		return
	}
	w.anchor = nil
	if w.pauser != nil {
		w.pauser.Resume()
	}
}
