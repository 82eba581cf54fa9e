package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

func TestResolveLoginFailReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrUserNotFound, want: constants.LoginFailReasonUserNotFound},
		{err: ErrInvalidCredentials, want: constants.LoginFailReasonInvalidPassword},
		{err: fmt.Errorf("wrap: %w", ErrUserBlocked), want: constants.LoginFailReasonUserBlocked},
		{err: ErrEmailNotVerified, want: constants.LoginFailReasonEmailUnverified},
		{err: ErrNotAdmin, want: constants.LoginFailReasonNotAdmin},
		{err: ErrOTPInvalid, want: constants.LoginFailReasonOTPInvalid},
		{err: ErrCaptchaInvalid, want: constants.LoginFailReasonCaptchaInvalid},
		{err: errors.New("db down"), want: constants.LoginFailReasonInternalError},
	}
	for _, tt := range tests {
		if got := ResolveLoginFailReason(tt.err); got != tt.want {
			t.Fatalf("ResolveLoginFailReason(%v) want %q, got %q", tt.err, tt.want, got)
		}
	}
}

func TestUserLoginLogServiceRecord(t *testing.T) {
	db := openServiceTestDB(t)
	svc := NewUserLoginLogService(repository.NewUserLoginLogRepository(db))
	fixed := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Record(RecordUserLoginInput{UserID: 7, Email: " User@B.com ", Status: "SUCCESS", FailReason: "ignored"}); err != nil {
		t.Fatalf("record success failed: %v", err)
	}
	if err := svc.Record(RecordUserLoginInput{Email: "x@b.com", Status: "weird"}); err != nil {
		t.Fatalf("record failure failed: %v", err)
	}

	items, total, err := svc.ListByUser(7, 0, 0)
	if err != nil {
		t.Fatalf("list by user failed: %v", err)
	}
	if total != 1 || items[0].Email != "user@b.com" || items[0].FailReason != "" || !items[0].CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected success log: total=%d items=%+v", total, items)
	}
	if items[0].LoginSource != models.LoginSourcePassword {
		t.Fatalf("login source want password, got %s", items[0].LoginSource)
	}

	all, total, err := svc.ListForAdmin(repository.UserLoginLogListFilter{Page: 1, PageSize: 10, Status: models.LoginStatusFailed})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if total != 1 || all[0].FailReason != constants.LoginFailReasonInternalError {
		t.Fatalf("unexpected failure log: total=%d items=%+v", total, all)
	}
}
