package client

import "math"

// MinDragDistance 是按下与抬起之间被视为拖拽的最小距离 (容器空间像素)。
const MinDragDistance = 2.0

// Cursor 跟踪指针在容器空间中的按下/移动/抬起, 用于区分点击与拖拽。
type Cursor struct {
	down    bool
	downX   float64
	downY   float64
	x       float64
	y       float64
	didDrag bool
}

// Down 记录按下位置。已经按下时忽略。
func (c *Cursor) Down(x, y float64) {
	if c.down {
		return
	}
	c.down = true
	c.downX, c.downY = x, y
	c.x, c.y = x, y
	c.didDrag = false
}

// Move 更新位置并返回自上次位置以来的位移; 未按下时 dragging 为 false。
func (c *Cursor) Move(x, y float64) (dx, dy float64, dragging bool) {
	dx, dy = x-c.x, y-c.y
	c.x, c.y = x, y
	return dx, dy, c.down
}

// Up 记录抬起位置, 并根据与按下位置的距离判断是否发生了拖拽。
func (c *Cursor) Up(x, y float64) {
	if !c.down {
		return
	}
	c.down = false
	c.x, c.y = x, y
	c.didDrag = math.Hypot(x-c.downX, y-c.downY) >= MinDragDistance
}

func (c *Cursor) IsDown() bool  { return c.down }
func (c *Cursor) DidDrag() bool { return c.didDrag }

// Position 返回最近一次的指针位置。
func (c *Cursor) Position() (x, y float64) { return c.x, c.y }
