// Package hotspot 记录最近的编辑位置, 并挑选编辑最密集的点供自动相机使用。
package hotspot

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// Config 是评分参数。对每一对点 (a, n), 曼哈顿距离为 d:
//
//	d > Buffer:  K / d^F
//	d <= Buffer: K * Buffer^(G-F) / d^G
type Config struct {
	Capacity int
	Buffer   float64
	K        float64
	F        float64
	G        float64
}

// DefaultConfig 返回默认参数: 容量 100, B=0, k=1, f=0.5, g=1。
func DefaultConfig() Config {
	return Config{Capacity: 100, Buffer: 0, K: 1, F: 0.5, G: 1}
}

// Tracker 是固定容量的环形缓冲区。它从不作为画布状态的依据, 只用于启发式。
// Tracker 不是并发安全的, 只能在事件循环上使用。
type Tracker struct {
	cfg    Config
	points []domain.Point
	cursor int
	count  int

	clk      clock.Clock
	timer    clock.Timer
	interval time.Duration
	gen      int
	onPick   func(domain.Point)
}

// New 创建 Tracker。onPick 在每次周期评分选出点时被调用, 可以为 nil。
func New(cfg Config, clk clock.Clock, onPick func(domain.Point)) *Tracker {
	if clk == nil {
		panic("Clock cannot be nil for hotspot Tracker")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	return &Tracker{
		cfg:    cfg,
		points: make([]domain.Point, cfg.Capacity),
		clk:    clk,
		onPick: onPick,
	}
}

// Record 把坐标写入光标所在的槽位并前移光标, 缓冲区满后覆盖最旧的记录。
func (t *Tracker) Record(x, y int) {
	t.points[t.cursor] = domain.Point{X: x, Y: y}
	t.cursor = (t.cursor + 1) % len(t.points)
	if t.count < len(t.points) {
		t.count++
	}
}

// Len 返回当前记录的点数。
func (t *Tracker) Len() int { return t.count }

// Points 按从旧到新的顺序返回记录的点。
func (t *Tracker) Points() []domain.Point {
	out := make([]domain.Point, 0, t.count)
	start := 0
	if t.count == len(t.points) {
		start = t.cursor
	}
	for i := 0; i < t.count; i++ {
		out = append(out, t.points[(start+i)%len(t.points)])
	}
	return out
}

// ScoreAndPick 返回得分最高的点, 缓冲区为空时返回 false。
// 得分相同时先记录的点胜出。
func (t *Tracker) ScoreAndPick() (domain.Point, bool) {
	pts := t.Points()
	if len(pts) == 0 {
		return domain.Point{}, false
	}
	best := pts[0]
	bestScore := math.Inf(-1)
	for i, a := range pts {
		score := 0.0
		for j, n := range pts {
			if i == j {
				continue
			}
			score += t.contribution(manhattan(a, n))
		}
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	return best, true
}

// contribution 计算距离为 d 的邻居对得分的贡献。
// 重合的两个不同记录按距离 1 计算, 使同一格子上的重复编辑相互加强。
func (t *Tracker) contribution(d int) float64 {
	dist := float64(d)
	if dist < 1 {
		dist = 1
	}
	c := t.cfg
	if dist > c.Buffer {
		return c.K / math.Pow(dist, c.F)
	}
	return c.K * math.Pow(c.Buffer, c.G-c.F) / math.Pow(dist, c.G)
}

func manhattan(a, b domain.Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Enable 启动周期评分。已经启用时仅更新间隔, 不会产生第二个定时器。
func (t *Tracker) Enable(interval time.Duration) {
	if interval <= 0 {
		return
	}
	t.interval = interval
	if t.timer != nil {
		return
	}
	logrus.WithFields(logrus.Fields{
		"component": "hotspot",
		"interval":  interval.String(),
	}).Debug("Auto camera enabled")
	t.arm()
}

// Disable 停止周期评分。重复调用是安全的。
func (t *Tracker) Disable() {
	if t.timer == nil {
		return
	}
	t.timer.Stop()
	t.timer = nil
	t.gen++
	logrus.WithField("component", "hotspot").Debug("Auto camera disabled")
}

// Enabled 报告周期评分是否在运行。
func (t *Tracker) Enabled() bool { return t.timer != nil }

func (t *Tracker) arm() {
	t.gen++
	gen := t.gen
	t.timer = t.clk.AfterFunc(t.interval, func() { t.fire(gen) })
}

func (t *Tracker) fire(gen int) {
	// 已被 Disable 或替换的定时器
	if gen != t.gen || t.timer == nil {
		return
	}
	if p, ok := t.ScoreAndPick(); ok && t.onPick != nil {
		t.onPick(p)
	}
	if t.timer != nil && gen == t.gen {
		t.arm()
	}
}
