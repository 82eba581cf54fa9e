package service

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/models"
)

const (
	defaultOTPLength         = 6
	defaultOTPExpireMinutes  = 5
	defaultOTPResendInterval = 60
)

func isOTPPurposeSupported(purpose string) bool {
	switch purpose {
	case constants.OTPPurposeVerifyEmail, constants.OTPPurposeLogin, constants.OTPPurposeReset:
		return true
	default:
		return false
	}
}

func normalizeOTPPurpose(purpose string) string {
	return strings.ToLower(strings.TrimSpace(purpose))
}

// issueOTP 生成新验证码并写入用户记录（未持久化）
// 距上次发送不足重发间隔时返回 ErrOTPTooFrequent
func issueOTP(cfg config.OTPConfig, user *models.User, purpose string, now time.Time) (string, error) {
	if user.OTPSentAt != nil {
		interval := time.Duration(resolveOTPResendInterval(cfg)) * time.Second
		if now.Sub(*user.OTPSentAt) < interval {
			return "", ErrOTPTooFrequent
		}
	}
	code, err := randomNumericCode(resolveOTPLength(cfg))
	if err != nil {
		return "", err
	}
	expiresAt := now.Add(time.Duration(resolveOTPExpireMinutes(cfg)) * time.Minute)
	sentAt := now
	user.OTPCode = code
	user.OTPPurpose = purpose
	user.OTPExpiresAt = &expiresAt
	user.OTPSentAt = &sentAt
	return code, nil
}

// VerifyOTP 校验验证码：用途一致、取值一致且当前时间早于过期时间
// 校验通过后清空验证码，调用方负责持久化
func VerifyOTP(user *models.User, purpose, code string, now time.Time) error {
	if user == nil || user.OTPCode == "" || user.OTPExpiresAt == nil {
		return ErrOTPInvalid
	}
	if user.OTPPurpose != purpose {
		return ErrOTPInvalid
	}
	if !now.Before(*user.OTPExpiresAt) {
		return ErrOTPInvalid
	}
	given := strings.TrimSpace(code)
	if subtle.ConstantTimeCompare([]byte(user.OTPCode), []byte(given)) != 1 {
		return ErrOTPInvalid
	}
	user.ClearOTP()
	return nil
}

func resolveOTPLength(cfg config.OTPConfig) int {
	if cfg.Length < 4 || cfg.Length > 10 {
		return defaultOTPLength
	}
	return cfg.Length
}

func resolveOTPExpireMinutes(cfg config.OTPConfig) int {
	if cfg.ExpireMinutes <= 0 {
		return defaultOTPExpireMinutes
	}
	return cfg.ExpireMinutes
}

func resolveOTPResendInterval(cfg config.OTPConfig) int {
	if cfg.ResendIntervalSeconds < 0 {
		return defaultOTPResendInterval
	}
	return cfg.ResendIntervalSeconds
}

func randomNumericCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
