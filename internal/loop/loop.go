// Package loop 提供单线程事件循环。引擎组件只在循环的 goroutine 上被调用,
// 因此它们本身不需要任何锁; 其他 goroutine 通过 Post 把工作交给循环。
package loop

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrStopped 表示循环已经退出, 不再接受新的工作。
var ErrStopped = errors.New("loop: stopped")

// Dispatcher 把可能阻塞的工作放到循环之外执行, 再把它返回的后续处理交回循环。
type Dispatcher interface {
	Go(work func() func())
}

// Loop 是一个带缓冲队列的事件循环。
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// New 创建一个队列容量为 size 的循环。
func New(size int) *Loop {
	if size <= 0 {
		size = 256
	}
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post 把 fn 加入队列。队列已满时阻塞, 循环已退出时返回 ErrStopped。
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Go 在新的 goroutine 中执行 work, 然后把 work 返回的函数 (若非 nil) 投递回循环。
func (l *Loop) Go(work func() func()) {
	go func() {
		next := work()
		if next == nil {
			return
		}
		if err := l.Post(next); err != nil {
			logrus.WithField("component", "loop").Debug("Dropped continuation after loop stopped")
		}
	}()
}

// Run 在调用方的 goroutine 上处理队列, 直到 ctx 结束。
func (l *Loop) Run(ctx context.Context) error {
	log := logrus.WithField("component", "loop")
	log.Debug("Event loop is running...")
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			log.Debug("Event loop is shutting down...")
			return ctx.Err()
		case fn := <-l.queue:
			l.invoke(log, fn)
		}
	}
}

// invoke 执行一个任务; 任务 panic 只记录日志, 不终止循环。
func (l *Loop) invoke(log *logrus.Entry, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered from panic in event loop task")
		}
	}()
	fn()
}

// Inline 是同步执行工作的 Dispatcher, 用于测试与无需并发的场景。
type Inline struct{}

func (Inline) Go(work func() func()) {
	if next := work(); next != nil {
		next()
	}
}
