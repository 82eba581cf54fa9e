package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/logger"

	"go.uber.org/zap"
)

const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	// shutdownGrace 生成调用结束后写回响应的余量
	shutdownGrace = 5 * time.Second
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 校验启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want all, api or worker)", raw)
	}
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = shutdownTimeout(opts.Config)
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

// shutdownTimeout 停机等待至少覆盖一次完整的同步生成调用
func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Generation.TimeoutSeconds <= 0 {
		return defaultShutdownTimeout
	}
	if timeout := time.Duration(cfg.Generation.TimeoutSeconds)*time.Second + shutdownGrace; timeout > defaultShutdownTimeout {
		return timeout
	}
	return defaultShutdownTimeout
}
