package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/polyva-3d/internal/config"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultGenerationTimeout = 60 * time.Second
)

// HTTPService HTTP 服务封装
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务；写超时须长于外部生成调用，否则同步生成的响应会被截断
func NewHTTPService(cfg *config.Config, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: "http",
		server: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           handler,
			ReadHeaderTimeout: secondsOr(cfg.Server.ReadHeaderTimeoutSeconds, defaultReadHeaderTimeout),
			IdleTimeout:       secondsOr(cfg.Server.IdleTimeoutSeconds, defaultIdleTimeout),
			WriteTimeout:      secondsOr(cfg.Generation.TimeoutSeconds, defaultGenerationTimeout) + shutdownGrace,
		},
	}
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Name 服务名称
func (s *HTTPService) Name() string {
	if s == nil || s.name == "" {
		return "http"
	}
	return s.name
}

// Start 阻塞监听，直到 Stop 关闭服务
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止接收新连接并等待进行中的请求
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
