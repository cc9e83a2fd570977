// Package camera 实现画布相机: 三个坐标空间之间的变换以及平移/缩放的插值。
//
// 坐标空间:
//   - 容器空间: 视口内的像素坐标, 原点在视口左上角。
//   - 相机空间: 相对画布中心的偏移, 即 pan = -(absolute - canvasSize/2)。
//   - 画布空间: 以格子为单位, 原点在画布左上角。
package camera

import (
	"fmt"
	"image"
	"math"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

const (
	MinZoom       = 4.0
	MaxZoom       = 40.0
	ZoomLerpSpeed = 0.2
	PanLerpSpeed  = 0.4

	// 当前值与目标值之差小于该值时直接吸附到目标。
	snapEpsilon = 0.01
)

// Vec 是一个二维浮点向量。
type Vec struct {
	X float64
	Y float64
}

// Model 保存相机的目标状态与当前 (已渲染) 状态。当前状态每个 tick 向目标插值一次。
type Model struct {
	canvasW    float64
	canvasH    float64
	containerW float64
	containerH float64

	targetPan   Vec
	currentPan  Vec
	targetZoom  float64
	currentZoom float64

	zoomedIn   bool
	panEnabled bool
}

// New 创建一个放大到 MaxZoom、居中于画布中心的相机。
func New(canvasWidth, canvasHeight int) *Model {
	return &Model{
		canvasW:     float64(canvasWidth),
		canvasH:     float64(canvasHeight),
		targetZoom:  MaxZoom,
		currentZoom: MaxZoom,
		zoomedIn:    true,
		panEnabled:  true,
	}
}

// SetContainerSize 记录视口尺寸 (容器空间)。尺寸为 0 表示未知。
func (m *Model) SetContainerSize(w, h float64) {
	m.containerW, m.containerH = w, h
}

// OffsetFromCameraLocation 把画布坐标转换为使该坐标位于视口中心的相机偏移。
func (m *Model) OffsetFromCameraLocation(x, y float64) Vec {
	return Vec{X: -(x - m.canvasW/2), Y: -(y - m.canvasH/2)}
}

// OffsetFromCameraPosition 把相对相机的位置转换为相机偏移 (方向取反)。
func (m *Model) OffsetFromCameraPosition(x, y float64) Vec {
	return Vec{X: -x, Y: -y}
}

// LocationFromCursorPosition 使用当前缩放与平移把容器坐标映射为画布格子坐标。
func (m *Model) LocationFromCursorPosition(cx, cy float64) domain.Point {
	z := m.currentZoom
	x := cx/z + m.canvasW/2 - m.containerW/(2*z) - m.currentPan.X
	y := cy/z + m.canvasH/2 - m.containerH/(2*z) - m.currentPan.Y
	return domain.Point{X: int(math.Round(x)), Y: int(math.Round(y))}
}

// CursorPositionFromLocation 是 LocationFromCursorPosition 的正向 (渲染) 变换。
func (m *Model) CursorPositionFromLocation(x, y int) Vec {
	z := m.currentZoom
	return Vec{
		X: z*(float64(x)-m.canvasW/2+m.currentPan.X) + m.containerW/2,
		Y: z*(float64(y)-m.canvasH/2+m.currentPan.Y) + m.containerH/2,
	}
}

// ContainerPositionFromOffset 返回相机偏移 offset 所指的画布点在容器空间中的位置。
func (m *Model) ContainerPositionFromOffset(offset Vec) Vec {
	z := m.currentZoom
	return Vec{
		X: m.containerW/2 - z*(offset.X-m.currentPan.X),
		Y: m.containerH/2 - z*(offset.Y-m.currentPan.Y),
	}
}

// SetTargetZoom 只更新目标缩放, 当前缩放在后续 tick 中插值过去。
func (m *Model) SetTargetZoom(z float64) error {
	if z <= 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidZoom, z)
	}
	m.targetZoom = z
	m.zoomedIn = z == MaxZoom
	return nil
}

// SetZoom 立即设置缩放 (目标与当前同时更新)。
func (m *Model) SetZoom(z float64) error {
	if err := m.SetTargetZoom(z); err != nil {
		return err
	}
	m.currentZoom = z
	return nil
}

// SetTargetPan 只更新目标平移。平移被禁用时忽略。
func (m *Model) SetTargetPan(x, y float64) {
	if !m.panEnabled {
		return
	}
	m.targetPan = Vec{X: x, Y: y}
}

// SetOffset 立即设置平移, 用于拖拽。
func (m *Model) SetOffset(x, y float64) {
	if !m.panEnabled {
		return
	}
	m.targetPan = Vec{X: x, Y: y}
	m.currentPan = m.targetPan
}

// SetCameraLocation 立即把相机居中到画布坐标 (x, y)。
func (m *Model) SetCameraLocation(x, y float64) {
	o := m.OffsetFromCameraLocation(x, y)
	m.SetOffset(o.X, o.Y)
}

// SetTargetCameraLocation 把目标平移设为居中于画布坐标 (x, y)。
func (m *Model) SetTargetCameraLocation(x, y float64) {
	o := m.OffsetFromCameraLocation(x, y)
	m.SetTargetPan(o.X, o.Y)
}

// PanBy 按容器空间中的位移拖动画布, 位移按当前缩放换算。
func (m *Model) PanBy(dx, dy float64) {
	m.SetOffset(m.currentPan.X+dx/m.currentZoom, m.currentPan.Y+dy/m.currentZoom)
}

// EnablePan / DisablePan 控制是否接受平移。
func (m *Model) EnablePan()  { m.panEnabled = true }
func (m *Model) DisablePan() { m.panEnabled = false }

// Tick 使用同一插值系数推进缩放与平移。
func (m *Model) Tick(lerpFactor float64) bool {
	return m.Advance(lerpFactor, lerpFactor)
}

// Advance 分别以 zoomLerp 与 panLerp 推进当前缩放与平移, 返回是否有任何值发生变化。
func (m *Model) Advance(zoomLerp, panLerp float64) bool {
	changed := false
	m.currentZoom, changed = approach(m.currentZoom, m.targetZoom, zoomLerp, changed)
	m.currentPan.X, changed = approach(m.currentPan.X, m.targetPan.X, panLerp, changed)
	m.currentPan.Y, changed = approach(m.currentPan.Y, m.targetPan.Y, panLerp, changed)
	return changed
}

func approach(cur, target, f float64, changed bool) (float64, bool) {
	if cur == target {
		return cur, changed
	}
	next := cur + f*(target-cur)
	if math.Abs(target-next) < snapEpsilon {
		next = target
	}
	return next, changed || next != cur
}

// Settled 报告当前状态是否已经到达目标。
func (m *Model) Settled() bool {
	return m.currentZoom == m.targetZoom && m.currentPan == m.targetPan
}

// ToggleZoom 在 MinZoom 与 MaxZoom 之间切换目标缩放, 返回切换后是否处于放大状态。
func (m *Model) ToggleZoom() bool {
	if m.zoomedIn {
		_ = m.SetTargetZoom(MinZoom)
	} else {
		_ = m.SetTargetZoom(MaxZoom)
	}
	return m.zoomedIn
}

// ToggleZoomAt 与 ToggleZoom 相同, 但放大时把目标平移设为相机偏移 focus。
func (m *Model) ToggleZoomAt(focus Vec) bool {
	zoomingIn := !m.zoomedIn
	m.ToggleZoom()
	if zoomingIn {
		m.SetTargetPan(focus.X, focus.Y)
	}
	return m.zoomedIn
}

// VisibleBounds 返回当前视口覆盖的画布格子范围 (已与画布求交)。
// 视口尺寸未知时返回整个画布。
func (m *Model) VisibleBounds() image.Rectangle {
	full := image.Rect(0, 0, int(m.canvasW), int(m.canvasH))
	if m.containerW <= 0 || m.containerH <= 0 {
		return full
	}
	tl := m.LocationFromCursorPosition(0, 0)
	br := m.LocationFromCursorPosition(m.containerW, m.containerH)
	// 取整可能截掉边缘的半个格子, 向外扩一格
	r := image.Rect(tl.X-1, tl.Y-1, br.X+2, br.Y+2)
	return r.Intersect(full)
}

// IsVisible 报告格子是否位于当前视口内。
func (m *Model) IsVisible(x, y int) bool {
	return image.Pt(x, y).In(m.VisibleBounds())
}

func (m *Model) TargetPan() Vec         { return m.targetPan }
func (m *Model) CurrentPan() Vec        { return m.currentPan }
func (m *Model) TargetZoom() float64    { return m.targetZoom }
func (m *Model) CurrentZoom() float64   { return m.currentZoom }
func (m *Model) ZoomedIn() bool         { return m.zoomedIn }
func (m *Model) PanEnabled() bool       { return m.panEnabled }
func (m *Model) CanvasSize() (w, h int) { return int(m.canvasW), int(m.canvasH) }
