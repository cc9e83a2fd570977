package canvas

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

const (
	// MaxColorIndex 是协议允许的最大调色板索引 (4 bit)。
	MaxColorIndex = 15
	// DefaultColor 在调色板为空时使用。
	DefaultColor = "#FFFFFF"
)

// DefaultPalette 是画布默认的 16 色调色板, 索引 0 为背景色。
var DefaultPalette = []string{
	"#FFFFFF", "#E4E4E4", "#888888", "#222222",
	"#FFA7D1", "#E50000", "#E59500", "#A06A42",
	"#E5D900", "#94E044", "#02BE01", "#00D3DD",
	"#0083C7", "#0000EA", "#CF6EE4", "#820080",
}

// Palette 保存显示颜色以及每个索引预先打包好的 32 位颜色。
type Palette struct {
	colors []color.RGBA
	packed []uint32
}

// NewPalette 解析颜色列表。颜色可以是 "#RRGGBB"、"#RGB" 或 CSS 颜色名。
func NewPalette(specs []string) (*Palette, error) {
	if len(specs) > MaxColorIndex+1 {
		return nil, fmt.Errorf("palette: %d colors exceeds maximum of %d", len(specs), MaxColorIndex+1)
	}
	p := &Palette{
		colors: make([]color.RGBA, 0, len(specs)),
		packed: make([]uint32, 0, len(specs)),
	}
	for i, s := range specs {
		c, err := ParseColor(s)
		if err != nil {
			return nil, fmt.Errorf("palette: color %d: %w", i, err)
		}
		p.colors = append(p.colors, c)
		p.packed = append(p.packed, PackRGBA(c))
	}
	return p, nil
}

// MustPalette 与 NewPalette 相同, 但解析失败时 panic。用于包级常量调色板。
func MustPalette(specs []string) *Palette {
	p, err := NewPalette(specs)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseColor 解析十六进制颜色或 CSS 颜色名, 返回不透明的 RGBA。
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		if c, ok := colornames.Map[strings.ToLower(s)]; ok {
			return c, nil
		}
		return color.RGBA{}, fmt.Errorf("unknown color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// PackRGBA 把颜色打包成一个 32 位值 (ABGR, 小端序下内存布局即为 RGBA)。
func PackRGBA(c color.RGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
}

// UnpackRGBA 是 PackRGBA 的逆操作。
func UnpackRGBA(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(v >> 24)}
}

// Len 返回调色板中的颜色数量。
func (p *Palette) Len() int {
	return len(p.colors)
}

// Color 返回索引对应的显示颜色。
// 索引先被限制在 [0, MaxColorIndex], 超出调色板长度时取模; 调色板为空时返回 DefaultColor。
func (p *Palette) Color(index int) color.RGBA {
	if len(p.colors) == 0 {
		c, _ := ParseColor(DefaultColor)
		return c
	}
	return p.colors[p.slot(index)]
}

// Packed 返回索引对应的打包颜色, 规则与 Color 相同。
func (p *Palette) Packed(index int) uint32 {
	if len(p.packed) == 0 {
		return PackRGBA(p.Color(index))
	}
	return p.packed[p.slot(index)]
}

func (p *Palette) slot(index int) int {
	if index < 0 {
		index = 0
	}
	if index > MaxColorIndex {
		index = MaxColorIndex
	}
	return index % len(p.colors)
}
