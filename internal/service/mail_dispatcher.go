package service

import (
	"context"

	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/queue"
)

// MailDispatcher 验证码邮件分发：启用队列时异步投递，否则同步发送
type MailDispatcher struct {
	email *EmailService
	queue *queue.Client
}

// NewMailDispatcher 创建邮件分发器
func NewMailDispatcher(email *EmailService, queueClient *queue.Client) *MailDispatcher {
	return &MailDispatcher{email: email, queue: queueClient}
}

// SendOTP 投递验证码邮件
func (d *MailDispatcher) SendOTP(ctx context.Context, msg OTPMessage) error {
	if d.queue != nil && d.queue.Enabled() {
		err := d.queue.EnqueueOTPEmail(queue.OTPEmailPayload{
			Email:         msg.Email,
			Code:          msg.Code,
			Purpose:       msg.Purpose,
			Locale:        msg.Locale,
			ExpireMinutes: msg.ExpireMinutes,
		})
		if err == nil {
			return nil
		}
		logger.Warnw("otp_email_enqueue_failed", "to", msg.Email, "purpose", msg.Purpose, "error", err)
	}
	if d.email == nil {
		return ErrEmailServiceNotConfigured
	}
	return d.email.SendOTP(ctx, msg)
}
