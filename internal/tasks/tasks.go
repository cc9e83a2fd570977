package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

// 任务类型常量
const (
	TypePixelPersistence  = "pixel:persist"      // 把已接受的放置写入 MySQL 历史
	TypeActivityBroadcast = "activity:broadcast" // 周期性广播在线人数
)

// PixelPersistencePayload 是持久化任务的数据。区域填充时一次携带多条记录。
type PixelPersistencePayload struct {
	Pixels []domain.Pixel `json:"pixels"`
}

// NewPixelPersistenceTask 创建持久化任务
func NewPixelPersistenceTask(pixels []domain.Pixel) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(PixelPersistencePayload{Pixels: pixels})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pixel persistence payload: %w", err)
	}
	return asynq.NewTask(TypePixelPersistence, payloadBytes), nil
}

// ParsePixelPersistencePayload 解析持久化任务的数据
func ParsePixelPersistencePayload(t *asynq.Task) (PixelPersistencePayload, error) {
	var payload PixelPersistencePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal pixel persistence payload: %w", err)
	}
	return payload, nil
}

// NewActivityBroadcastTask 创建在线人数广播任务, 它没有数据。
func NewActivityBroadcastTask() *asynq.Task {
	return asynq.NewTask(TypeActivityBroadcast, nil)
}

// TaskClient 是 *asynq.Client 中被用到的部分
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer 把放置记录投递到持久化队列
type Enqueuer struct {
	client TaskClient
}

// NewEnqueuer 创建 Enqueuer
func NewEnqueuer(client TaskClient) *Enqueuer {
	if client == nil {
		panic("TaskClient cannot be nil for Enqueuer")
	}
	return &Enqueuer{client: client}
}

// EnqueuePixels 投递一条持久化任务
func (e *Enqueuer) EnqueuePixels(ctx context.Context, pixels []domain.Pixel) error {
	if len(pixels) == 0 {
		return nil
	}
	task, err := NewPixelPersistenceTask(pixels)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("asynq: failed to enqueue %s (%d pixels): %w", TypePixelPersistence, len(pixels), err)
	}
	return nil
}
