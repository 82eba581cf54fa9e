package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/provider"
	"github.com/polyva-3d/internal/queue"
	"github.com/polyva-3d/internal/service"

	"github.com/hibiken/asynq"
)

type fileRemover interface {
	Delete(ctx context.Context, keys ...string) error
}

// Consumer 异步任务消费者
type Consumer struct {
	mailer service.OTPMailer
	files  fileRemover
}

// NewConsumer 创建消费者；邮件直接走 SMTP，避免任务再次入队
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	consumer := &Consumer{}
	if c.EmailService != nil {
		consumer.mailer = c.EmailService
	}
	if c.UploadService != nil {
		consumer.files = c.UploadService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSendOTPEmail, c.handleOTPEmail)
	mux.HandleFunc(queue.TaskStorageCleanup, c.handleStorageCleanup)
}

func (c *Consumer) handleOTPEmail(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_otp_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OTPEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_otp_email_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Code) == "" {
		logger.Debugw("worker_otp_email_skip_invalid_payload", "email", payload.Email)
		return nil
	}
	if c.mailer == nil {
		logger.Warnw("worker_otp_email_mailer_unavailable", "email", payload.Email)
		return fmt.Errorf("%w: %w", service.ErrEmailServiceNotConfigured, asynq.SkipRetry)
	}
	if err := c.mailer.SendOTP(ctx, service.OTPMessage{
		Email:         payload.Email,
		Code:          payload.Code,
		Purpose:       payload.Purpose,
		Locale:        payload.Locale,
		ExpireMinutes: payload.ExpireMinutes,
	}); err != nil {
		logger.Warnw("worker_otp_email_send_failed", "email", payload.Email, "purpose", payload.Purpose, "error", err)
		return err
	}
	logger.Infow("worker_otp_email_sent", "email", payload.Email, "purpose", payload.Purpose)
	return nil
}

func (c *Consumer) handleStorageCleanup(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.StorageCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_storage_cleanup_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if len(payload.Keys) == 0 || c.files == nil {
		return nil
	}
	if err := c.files.Delete(ctx, payload.Keys...); err != nil {
		logger.Warnw("worker_storage_cleanup_failed", "keys", payload.Keys, "error", err)
		return err
	}
	return nil
}
