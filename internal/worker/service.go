package worker

import (
	"context"
	"errors"
	"time"

	"github.com/uplink-rewards/internal/config"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 消费奖励事件队列的 asynq 服务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建队列消费服务，队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	mux.Use(taskLogMiddleware)
	consumer.Register(mux)
	return &Service{
		server: asynq.NewServer(opt, serverCfg),
		mux:    mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费并阻塞到 ctx 结束；信号由 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止拉取新任务，并等待进行中的任务结束
func (s *Service) Stop(_ context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

func taskLogMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, task)
		if err != nil {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Warnw("worker_task_failed",
				"type", task.Type(),
				"retried", retried,
				"skip_retry", errors.Is(err, asynq.SkipRetry),
				"latency_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return err
		}
		logger.Debugw("worker_task_done", "type", task.Type(), "latency_ms", time.Since(start).Milliseconds())
		return nil
	})
}
