package camera

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// ParseDeepLink 解析形如 "x=<int>&y=<int>" 的定位片段 (可带前导 "#" 或 "?"),
// 并把结果限制在 width x height 的画布内。缺少或无法解析任一坐标时返回 false。
func ParseDeepLink(fragment string, width, height int) (domain.Point, bool) {
	fragment = strings.TrimLeft(fragment, "#?")
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return domain.Point{}, false
	}
	x, errX := strconv.Atoi(values.Get("x"))
	y, errY := strconv.Atoi(values.Get("y"))
	if errX != nil || errY != nil {
		return domain.Point{}, false
	}
	return domain.Point{X: clamp(x, 0, width-1), Y: clamp(y, 0, height-1)}, true
}

// FormatDeepLink 生成与 ParseDeepLink 对应的定位片段。
func FormatDeepLink(p domain.Point) string {
	return fmt.Sprintf("x=%d&y=%d", p.X, p.Y)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
