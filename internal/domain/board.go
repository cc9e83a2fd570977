package domain

// Point 是画布空间中的一个整数坐标 (格子坐标)。
type Point struct {
	X int
	Y int
}

// TileEdit 表示对单个格子的一次写入。
type TileEdit struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Color int `json:"color"`
}

// Rect 是画布空间中的一个轴对齐矩形, 包含 (X, Y), 宽高为 W x H。
type Rect struct {
	X int
	Y int
	W int
	H int
}

// RectFromCorners 根据任意两个对角点构造矩形, 两个角点都包含在内。
func RectFromCorners(a, b Point) Rect {
	x0, x1 := a.X, b.X
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := a.Y, b.Y
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

// Empty 报告矩形是否不包含任何格子。
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Edits 按行优先顺序展开矩形中的所有写入。
func (r Rect) Edits(color int) []TileEdit {
	if r.Empty() {
		return nil
	}
	edits := make([]TileEdit, 0, r.W*r.H)
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			edits = append(edits, TileEdit{X: x, Y: y, Color: color})
		}
	}
	return edits
}
