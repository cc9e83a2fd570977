// Package clock 抽象了引擎使用的时间源与一次性定时器, 以便在测试中确定性地推进时间。
// 时间源由 github.com/benbjohnson/clock 提供, 本包负责把定时器回调交给事件循环。
package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Timer 是一个可取消的一次性定时器。
type Timer interface {
	// Stop 阻止定时器触发, 如果定时器已经触发或已被停止则返回 false。
	Stop() bool
}

// Clock 提供当前时间与一次性定时器。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type loopClock struct {
	base bclock.Clock
	post func(func())
}

// New 返回基于系统时间的 Clock。定时器到期时回调通过 post 交给事件循环执行;
// post 为 nil 时回调直接在定时器的 goroutine 上运行。
func New(post func(func())) Clock {
	return Wrap(bclock.New(), post)
}

// Wrap 与 New 相同, 但使用给定的时间源, 测试中传入 bclock.NewMock()。
func Wrap(base bclock.Clock, post func(func())) Clock {
	if base == nil {
		panic("base clock cannot be nil for Wrap")
	}
	return loopClock{base: base, post: post}
}

func (c loopClock) Now() time.Time {
	return c.base.Now()
}

func (c loopClock) AfterFunc(d time.Duration, f func()) Timer {
	if c.post == nil {
		return c.base.AfterFunc(d, f)
	}
	post := c.post
	return c.base.AfterFunc(d, func() { post(f) })
}
