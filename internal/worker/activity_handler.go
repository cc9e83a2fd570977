package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// ActivityCounter 返回当前在线的客户端数量, 由 Hub 实现。
type ActivityCounter interface {
	ActiveCount() int
}

// ActivityBroadcaster 把在线人数推送给所有客户端, 由 PlaceService 实现。
type ActivityBroadcaster interface {
	BroadcastActivity(ctx context.Context, count int) error
}

// ActivityBroadcastHandler 处理周期性的在线人数广播任务
type ActivityBroadcastHandler struct {
	counter     ActivityCounter
	broadcaster ActivityBroadcaster
}

// NewActivityBroadcastHandler 创建 Handler 实例
func NewActivityBroadcastHandler(counter ActivityCounter, broadcaster ActivityBroadcaster) *ActivityBroadcastHandler {
	if counter == nil {
		panic("ActivityCounter cannot be nil for ActivityBroadcastHandler")
	}
	if broadcaster == nil {
		panic("ActivityBroadcaster cannot be nil for ActivityBroadcastHandler")
	}
	return &ActivityBroadcastHandler{counter: counter, broadcaster: broadcaster}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *ActivityBroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	count := h.counter.ActiveCount()
	if err := h.broadcaster.BroadcastActivity(ctx, count); err != nil {
		logCtx.WithError(err).Warn("Failed to broadcast activity count")
		return fmt.Errorf("failed to broadcast activity: %w", err)
	}

	logCtx.WithField("count", count).Debug("Activity count broadcast")
	return nil
}
