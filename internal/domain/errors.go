package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// 编程错误: 调用方违反了前置条件, 应当尽早暴露。
	ErrInvalidDimension = errors.New("canvas: width and height must be positive")
	ErrOutOfBounds      = errors.New("canvas: coordinate out of bounds")
	ErrInvalidColor     = errors.New("canvas: color index out of range")
	ErrInvalidZoom      = errors.New("camera: zoom must be positive")

	// 用户可见的拒绝, 在本地恢复。
	ErrAdmissionClosed = errors.New("interaction: admission closed")
	ErrDrawRejected    = errors.New("interaction: draw rejected")

	// 远端数据异常: 丢弃并计数。
	ErrProtocolAnomaly = errors.New("protocol anomaly")

	// 绘制接口失败且服务端没有给出等待时间。
	ErrTransientAPIFailure = errors.New("transient api failure")
)

// RejectReason 描述绘制请求被本地拒绝的原因。
type RejectReason string

const (
	RejectDisabled    RejectReason = "disabled"
	RejectNoColor     RejectReason = "no_color"
	RejectCoolingDown RejectReason = "cooling_down"
	RejectOutOfBounds RejectReason = "out_of_bounds"
)

// DrawRejectedError 在 Draw 的前置条件不满足时返回。errors.Is(err, ErrDrawRejected) 为 true。
type DrawRejectedError struct {
	Reason RejectReason
}

func (e *DrawRejectedError) Error() string {
	return fmt.Sprintf("interaction: draw rejected: %s", e.Reason)
}

func (e *DrawRejectedError) Is(target error) bool {
	return target == ErrDrawRejected
}

// RateLimitError 表示服务端拒绝了绘制请求并给出了需要等待的时间。
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry in %s", e.Wait)
}
