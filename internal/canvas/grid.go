// Package canvas 实现像素网格: 权威的颜色索引、待呈现的写缓冲区以及已呈现的表面。
package canvas

import (
	"errors"
	"fmt"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// ErrBitmapSize 表示批量加载的位图长度与画布尺寸不符。
var ErrBitmapSize = errors.New("canvas: bitmap size does not match grid")

// Grid 是双缓冲的像素网格。
//
// colorOf 是权威状态; buffer 保存每个格子经调色板换算后的打包颜色;
// surface 是最近一次 Flush 时 buffer 的副本, 即展示层看到的内容。
// 所有写入都是整像素的 32 位存储, 表面永远不会出现写了一半的像素。
// Grid 不是并发安全的, 只能在事件循环上使用。
type Grid struct {
	width   int
	height  int
	palette *Palette
	colorOf []uint8
	buffer  []uint32
	surface []uint32
	dirty   bool
}

// NewGrid 创建一个全部为背景色 (索引 0) 的网格。
func NewGrid(width, height int, palette *Palette) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", domain.ErrInvalidDimension, width, height)
	}
	if palette == nil {
		panic("Palette cannot be nil for Grid")
	}
	n := width * height
	g := &Grid{
		width:   width,
		height:  height,
		palette: palette,
		colorOf: make([]uint8, n),
		buffer:  make([]uint32, n),
		surface: make([]uint32, n),
	}
	bg := palette.Packed(0)
	for i := range g.buffer {
		g.buffer[i] = bg
		g.surface[i] = bg
	}
	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Palette 返回当前调色板。
func (g *Grid) Palette() *Palette { return g.palette }

// Contains 报告坐标是否位于网格内。
func (g *Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// IndexOf 返回格子在行优先线性存储中的下标。
func (g *Grid) IndexOf(x, y int) (int, error) {
	if !g.Contains(x, y) {
		return 0, fmt.Errorf("%w: (%d, %d) outside %dx%d", domain.ErrOutOfBounds, x, y, g.width, g.height)
	}
	return y*g.width + x, nil
}

// SetTile 写入一个格子的颜色索引并更新写缓冲区。表面在下一次 Flush 之前保持不变。
func (g *Grid) SetTile(x, y, colorIndex int) error {
	i, err := g.IndexOf(x, y)
	if err != nil {
		return err
	}
	if colorIndex < 0 || colorIndex > MaxColorIndex {
		return fmt.Errorf("%w: %d", domain.ErrInvalidColor, colorIndex)
	}
	g.colorOf[i] = uint8(colorIndex)
	g.buffer[i] = g.palette.Packed(colorIndex)
	g.dirty = true
	return nil
}

// Flush 在缓冲区有未呈现的写入时把它复制到表面, 返回是否发生了复制。
func (g *Grid) Flush() bool {
	if !g.dirty {
		return false
	}
	copy(g.surface, g.buffer)
	g.dirty = false
	return true
}

// Dirty 报告是否有尚未呈现的写入。
func (g *Grid) Dirty() bool { return g.dirty }

// BulkLoad 用每格一字节的行优先快照覆盖整个网格, 然后立即呈现。
// 任何校验失败时网格保持不变。
func (g *Grid) BulkLoad(bitmap []byte) error {
	if len(bitmap) != len(g.colorOf) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBitmapSize, len(bitmap), len(g.colorOf))
	}
	for i, c := range bitmap {
		if c > MaxColorIndex {
			return fmt.Errorf("%w: %d at tile (%d, %d)", domain.ErrInvalidColor, c, i%g.width, i/g.width)
		}
	}
	copy(g.colorOf, bitmap)
	for i, c := range g.colorOf {
		g.buffer[i] = g.palette.Packed(int(c))
	}
	g.dirty = true
	g.Flush()
	return nil
}

// SetPalette 替换调色板并重新计算整个写缓冲区。
func (g *Grid) SetPalette(p *Palette) {
	if p == nil {
		panic("Palette cannot be nil for Grid")
	}
	g.palette = p
	for i, c := range g.colorOf {
		g.buffer[i] = p.Packed(int(c))
	}
	g.dirty = true
}

// ColorAt 返回格子的权威颜色索引。
func (g *Grid) ColorAt(x, y int) (int, error) {
	i, err := g.IndexOf(x, y)
	if err != nil {
		return 0, err
	}
	return int(g.colorOf[i]), nil
}

// BufferedAt 返回写缓冲区中格子的打包颜色。
func (g *Grid) BufferedAt(x, y int) (uint32, error) {
	i, err := g.IndexOf(x, y)
	if err != nil {
		return 0, err
	}
	return g.buffer[i], nil
}

// PresentedAt 返回表面上格子的打包颜色。
func (g *Grid) PresentedAt(x, y int) (uint32, error) {
	i, err := g.IndexOf(x, y)
	if err != nil {
		return 0, err
	}
	return g.surface[i], nil
}

// Snapshot 返回颜色索引的副本 (每格一字节, 行优先)。
func (g *Grid) Snapshot() []byte {
	out := make([]byte, len(g.colorOf))
	copy(out, g.colorOf)
	return out
}
