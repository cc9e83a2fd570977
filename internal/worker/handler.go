package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/tasks"
)

// PixelPersistenceHandler 把放置记录写入 MySQL
type PixelPersistenceHandler struct {
	pixelRepo repository.PixelRepository
}

// NewPixelPersistenceHandler 创建 Handler 实例
func NewPixelPersistenceHandler(pixelRepo repository.PixelRepository) *PixelPersistenceHandler {
	if pixelRepo == nil {
		panic("PixelRepository cannot be nil for PixelPersistenceHandler")
	}
	return &PixelPersistenceHandler{pixelRepo: pixelRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *PixelPersistenceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := taskLogger(ctx, t)

	payload, err := tasks.ParsePixelPersistencePayload(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		// 数据损坏时重试没有意义
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if len(payload.Pixels) == 0 {
		return nil
	}

	if err := h.pixelRepo.SaveBatch(ctx, payload.Pixels); err != nil {
		logCtx.WithError(err).Errorf("Failed to save pixel batch (size %d)", len(payload.Pixels))
		return fmt.Errorf("failed to save pixel batch: %w", err)
	}

	logCtx.WithField("pixels", len(payload.Pixels)).Debug("Pixel persistence task processed successfully")
	return nil
}

// taskLogger 返回带有任务信息的日志条目
func taskLogger(ctx context.Context, t *asynq.Task) *logrus.Entry {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return logrus.WithFields(logrus.Fields{
		"component": "worker",
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
}
