package service

import (
	"errors"
	"testing"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

func repositoryUserFilterAll() repository.UserListFilter {
	return repository.UserListFilter{}
}

func TestVerifyOTP(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := now.Add(5 * time.Minute)

	tests := []struct {
		name    string
		purpose string
		code    string
		at      time.Time
		want    error
	}{
		{name: "match_before_expiry", purpose: constants.OTPPurposeVerifyEmail, code: "123456", at: now, want: nil},
		{name: "match_with_spaces", purpose: constants.OTPPurposeVerifyEmail, code: " 123456 ", at: now, want: nil},
		{name: "just_before_expiry", purpose: constants.OTPPurposeVerifyEmail, code: "123456", at: expires.Add(-time.Nanosecond), want: nil},
		{name: "at_expiry", purpose: constants.OTPPurposeVerifyEmail, code: "123456", at: expires, want: ErrOTPInvalid},
		{name: "after_expiry", purpose: constants.OTPPurposeVerifyEmail, code: "123456", at: expires.Add(time.Minute), want: ErrOTPInvalid},
		{name: "mismatch", purpose: constants.OTPPurposeVerifyEmail, code: "654321", at: now, want: ErrOTPInvalid},
		{name: "wrong_purpose", purpose: constants.OTPPurposeReset, code: "123456", at: now, want: ErrOTPInvalid},
		{name: "empty_code", purpose: constants.OTPPurposeVerifyEmail, code: "", at: now, want: ErrOTPInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := expires
			user := &models.User{OTPCode: "123456", OTPPurpose: constants.OTPPurposeVerifyEmail, OTPExpiresAt: &exp}
			err := VerifyOTP(user, tt.purpose, tt.code, tt.at)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if err == nil && (user.OTPCode != "" || user.OTPExpiresAt != nil) {
				t.Fatalf("code should be cleared after success")
			}
			if err != nil && user.OTPCode == "" {
				t.Fatalf("code should be kept after failure")
			}
		})
	}

	if err := VerifyOTP(&models.User{}, constants.OTPPurposeVerifyEmail, "", now); !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("user without code should be rejected, got %v", err)
	}
}

func TestIssueOTP(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.OTPConfig{Length: 6, ExpireMinutes: 5, ResendIntervalSeconds: 30}
	user := &models.User{}

	code, err := issueOTP(cfg, user, constants.OTPPurposeLogin, now)
	if err != nil {
		t.Fatalf("issue otp failed: %v", err)
	}
	if len(code) != 6 || user.OTPCode != code || user.OTPPurpose != constants.OTPPurposeLogin {
		t.Fatalf("unexpected otp state: %+v", user)
	}
	if !user.OTPExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", user.OTPExpiresAt)
	}
	if _, err := issueOTP(cfg, user, constants.OTPPurposeLogin, now.Add(10*time.Second)); !errors.Is(err, ErrOTPTooFrequent) {
		t.Fatalf("resend within interval should fail, got %v", err)
	}
	if _, err := issueOTP(cfg, user, constants.OTPPurposeLogin, now.Add(31*time.Second)); err != nil {
		t.Fatalf("resend after interval failed: %v", err)
	}
}

func TestResolveOTPLengthBounds(t *testing.T) {
	if got := resolveOTPLength(config.OTPConfig{Length: 2}); got != 6 {
		t.Fatalf("short length should fall back to 6, got %d", got)
	}
	if got := resolveOTPLength(config.OTPConfig{Length: 8}); got != 8 {
		t.Fatalf("length 8 should be kept, got %d", got)
	}
}
