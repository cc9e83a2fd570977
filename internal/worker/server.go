package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/repository"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑
type WorkerServer struct {
	server *asynq.Server
	log    *logrus.Entry
	mux    *asynq.ServeMux
}

// NewWorkerServer 创建一个新的 WorkerServer 实例并注册任务处理器
func NewWorkerServer(redisOpt asynq.RedisClientOpt, pixelRepo repository.PixelRepository, counter ActivityCounter, broadcaster ActivityBroadcaster, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: NewAsynqLogger(logEntry),
		},
	)

	return &WorkerServer{
		server: server,
		log:    logEntry,
		mux:    NewServeMux(pixelRepo, counter, broadcaster),
	}
}

// NewServeMux 注册所有任务处理器
func NewServeMux(pixelRepo repository.PixelRepository, counter ActivityCounter, broadcaster ActivityBroadcaster) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypePixelPersistence, NewPixelPersistenceHandler(pixelRepo))
	mux.Handle(tasks.TypeActivityBroadcast, NewActivityBroadcastHandler(counter, broadcaster))
	return mux
}

// Start 运行 Worker Server
// 它应该在一个单独的 goroutine 中调用
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
