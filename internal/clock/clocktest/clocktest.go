// Package clocktest 提供基于 bclock.Mock 的手动推进时钟。
// 到期回调在 Advance 的调用方 goroutine 上按到期顺序执行, 与事件循环上的行为一致。
package clocktest

import (
	"sort"
	"time"

	bclock "github.com/benbjohnson/clock"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock"
)

// settle 是等待 Mock 在自己的 goroutine 中投递回调的时间。
const settle = 20 * time.Millisecond

// Clock 实现 clock.Clock。它不是并发安全的, 只能在测试 goroutine 上使用。
type Clock struct {
	mock      *bclock.Mock
	base      clock.Clock
	posted    chan func()
	pending   map[*timer]struct{}
	deadlines []time.Time
}

type timer struct {
	c     *Clock
	inner clock.Timer
}

// New 创建一个从 start 开始的时钟。
func New(start time.Time) *Clock {
	m := bclock.NewMock()
	m.Set(start)
	c := &Clock{
		mock:    m,
		posted:  make(chan func(), 64),
		pending: make(map[*timer]struct{}),
	}
	c.base = clock.Wrap(m, func(f func()) { c.posted <- f })
	return c
}

func (c *Clock) Now() time.Time { return c.mock.Now() }

func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	t := &timer{c: c}
	t.inner = c.base.AfterFunc(d, func() {
		delete(c.pending, t)
		f()
	})
	c.pending[t] = struct{}{}
	c.deadlines = append(c.deadlines, c.mock.Now().Add(d))
	return t
}

// Advance 把时间推进 d。途中到期的定时器 (包括回调中新建且在窗口内到期的) 依次触发。
func (c *Clock) Advance(d time.Duration) {
	end := c.mock.Now().Add(d)
	for {
		next, ok := c.popDeadline(end)
		if !ok {
			break
		}
		if step := next.Sub(c.mock.Now()); step > 0 {
			c.mock.Add(step)
		} else {
			c.mock.Add(0)
		}
		c.drain()
	}
	c.mock.Add(end.Sub(c.mock.Now()))
	c.drain()
}

// Pending 返回尚未触发也未停止的定时器数量。
func (c *Clock) Pending() int { return len(c.pending) }

func (c *Clock) popDeadline(end time.Time) (time.Time, bool) {
	if len(c.deadlines) == 0 {
		return time.Time{}, false
	}
	sort.Slice(c.deadlines, func(i, j int) bool { return c.deadlines[i].Before(c.deadlines[j]) })
	next := c.deadlines[0]
	if next.After(end) {
		return time.Time{}, false
	}
	c.deadlines = c.deadlines[1:]
	return next, true
}

// drain 执行已投递的回调, 直到一段时间内没有新的回调。
func (c *Clock) drain() {
	for {
		select {
		case f := <-c.posted:
			f()
		case <-time.After(settle):
			return
		}
	}
}

func (t *timer) Stop() bool {
	if _, ok := t.c.pending[t]; !ok {
		return false
	}
	delete(t.c.pending, t)
	return t.inner.Stop()
}
