package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 投递邮件与清理存储对象的 asynq 消费服务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建消费服务，队列未启用时返回错误
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(opt, serverCfg), mux: mux}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费者并阻塞到 ctx 结束
// 不使用 asynq 的 Run：信号由 app.Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	logger.Infow("worker_consuming", "tasks", []string{queue.TaskSendOTPEmail, queue.TaskStorageCleanup})
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务结束，ctx 到期时不再等待
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}
