package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/i18n"
	"github.com/polyva-3d/internal/logger"

	"github.com/wneessen/go-mail"
)

// OTPMessage 验证码邮件内容
type OTPMessage struct {
	Email         string
	Code          string
	Purpose       string
	Locale        string
	ExpireMinutes int
}

// OTPMailer 验证码邮件投递接口
type OTPMailer interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// EmailService 邮件发送服务
type EmailService struct {
	cfg  *config.EmailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// Configured SMTP 是否可用；未配置时邮件降级为日志
func (s *EmailService) Configured() bool {
	if s == nil || s.cfg == nil || !s.cfg.Enabled {
		return false
	}
	return strings.TrimSpace(s.cfg.Host) != "" && strings.TrimSpace(s.cfg.From) != ""
}

// SendOTP 发送验证码邮件
func (s *EmailService) SendOTP(ctx context.Context, msg OTPMessage) error {
	subject, body := buildOTPContent(msg)
	if !s.Configured() {
		logger.Infow("email_delivery_skipped",
			"to", msg.Email,
			"purpose", msg.Purpose,
			"subject", subject,
			"code", msg.Code,
			"reason", "smtp_not_configured",
		)
		return nil
	}
	return s.sendText(ctx, msg.Email, subject, body)
}

func (s *EmailService) sendText(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if strings.TrimSpace(s.cfg.FromName) != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("%w: from address: %v", ErrEmailServiceNotConfigured, err)
		}
	} else if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("%w: from address: %v", ErrEmailServiceNotConfigured, err)
	}
	if err := msg.To(to); err != nil {
		return ErrInvalidEmail
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.send(ctx, msg); err != nil {
		logger.Warnw("email_send_failed", "to", to, "error", err)
		return fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}
	return nil
}

func (s *EmailService) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host, buildMailOptions(s.cfg)...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func buildMailOptions(cfg *config.EmailConfig) []mail.Option {
	opts := []mail.Option{}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	switch {
	case cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" || cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return opts
}

func buildOTPContent(msg OTPMessage) (string, string) {
	locale := i18n.NormalizeLocale(msg.Locale)
	purpose := normalizeOTPPurpose(msg.Purpose)
	if !isOTPPurposeSupported(purpose) {
		purpose = constants.OTPPurposeVerifyEmail
	}
	subject := i18n.T(locale, "email.otp.subject."+purpose)
	purposeText := i18n.T(locale, "email.otp.purpose."+purpose)
	expire := msg.ExpireMinutes
	if expire <= 0 {
		expire = defaultOTPExpireMinutes
	}
	body := i18n.Sprintf(locale, "email.otp.body", msg.Code, purposeText, expire)
	return subject, body
}
