package canvas

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

// Image 把已呈现的表面复制为 image.RGBA。未 Flush 的写入不会出现在结果中。
func (g *Grid) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for i, v := range g.surface {
		binary.LittleEndian.PutUint32(img.Pix[i*4:], v)
	}
	return img
}

// WritePNG 把表面编码为 PNG, scale > 1 时以最近邻方式放大 (每格 scale x scale 像素)。
func (g *Grid) WritePNG(w io.Writer, scale int) error {
	if scale < 1 {
		return fmt.Errorf("canvas: invalid png scale %d", scale)
	}
	var out image.Image = g.Image()
	if scale > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, g.width*scale, g.height*scale))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), out, out.Bounds(), xdraw.Src, nil)
		out = dst
	}
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("canvas: encode png: %w", err)
	}
	return nil
}
