package service

import (
	"errors"
	"strings"
	"time"

	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

// UserLoginLogService 用户登录日志服务
type UserLoginLogService struct {
	repo repository.UserLoginLogRepository
	now  func() time.Time
}

// NewUserLoginLogService 创建用户登录日志服务
func NewUserLoginLogService(repo repository.UserLoginLogRepository) *UserLoginLogService {
	return &UserLoginLogService{repo: repo, now: time.Now}
}

// RecordUserLoginInput 登录日志记录输入
type RecordUserLoginInput struct {
	UserID      uint
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	UserAgent   string
	LoginSource string
	RequestID   string
}

// Record 记录登录行为
func (s *UserLoginLogService) Record(input RecordUserLoginInput) error {
	if s == nil || s.repo == nil {
		return nil
	}

	email := strings.TrimSpace(input.Email)
	if normalized, err := NormalizeEmail(email); err == nil {
		email = normalized
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != models.LoginStatusSuccess {
		status = models.LoginStatusFailed
	}

	failReason := strings.ToLower(strings.TrimSpace(input.FailReason))
	if status == models.LoginStatusSuccess {
		failReason = ""
	} else if failReason == "" {
		failReason = constants.LoginFailReasonInternalError
	}

	source := strings.ToLower(strings.TrimSpace(input.LoginSource))
	if source == "" {
		source = models.LoginSourcePassword
	}

	now := time.Now()
	if s.now != nil {
		now = s.now()
	}
	return s.repo.Create(&models.UserLoginLog{
		UserID:      input.UserID,
		Email:       email,
		Status:      status,
		FailReason:  failReason,
		ClientIP:    strings.TrimSpace(input.ClientIP),
		UserAgent:   strings.TrimSpace(input.UserAgent),
		LoginSource: source,
		RequestID:   strings.TrimSpace(input.RequestID),
		CreatedAt:   now,
	})
}

// ResolveLoginFailReason 将登录流程错误映射为日志失败原因
func ResolveLoginFailReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidEmail):
		return constants.LoginFailReasonInvalidEmail
	case errors.Is(err, ErrUserNotFound):
		return constants.LoginFailReasonUserNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return constants.LoginFailReasonInvalidPassword
	case errors.Is(err, ErrUserBlocked):
		return constants.LoginFailReasonUserBlocked
	case errors.Is(err, ErrEmailNotVerified):
		return constants.LoginFailReasonEmailUnverified
	case errors.Is(err, ErrNotAdmin):
		return constants.LoginFailReasonNotAdmin
	case errors.Is(err, ErrOTPInvalid):
		return constants.LoginFailReasonOTPInvalid
	case errors.Is(err, ErrCaptchaRequired), errors.Is(err, ErrCaptchaInvalid):
		return constants.LoginFailReasonCaptchaInvalid
	default:
		return constants.LoginFailReasonInternalError
	}
}

// ListForAdmin 管理端查询登录日志
func (s *UserLoginLogService) ListForAdmin(filter repository.UserLoginLogListFilter) ([]models.UserLoginLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.UserLoginLog{}, 0, nil
	}
	return s.repo.ListAdmin(filter)
}

// ListByUser 用户侧查询自己的登录日志
func (s *UserLoginLogService) ListByUser(userID uint, page, pageSize int) ([]models.UserLoginLog, int64, error) {
	if s == nil || s.repo == nil || userID == 0 {
		return []models.UserLoginLog{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.repo.ListByUser(userID, page, pageSize)
}
