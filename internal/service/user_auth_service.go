package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
)

// UserAuthService 用户账号与登录流程服务
type UserAuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	auth     *AuthService
	mailer   OTPMailer
	now      func() time.Time
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository, auth *AuthService, mailer OTPMailer) *UserAuthService {
	return &UserAuthService{
		cfg:      cfg,
		userRepo: userRepo,
		auth:     auth,
		mailer:   mailer,
		now:      time.Now,
	}
}

// Session 已签发的会话
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// LoginResult 密码登录结果；开启二次验证时 Session 为空且 OTPRequired 为真
type LoginResult struct {
	Session     *Session
	OTPRequired bool
	User        *models.User
}

// SignupInput 注册参数
type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	Locale      string
}

// ProfileUpdate 资料更新参数
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
}

// Signup 注册：创建未验证用户并发送邮箱验证码
// 邮箱已存在但未验证时更新密码并重新发送验证码
func (s *UserAuthService) Signup(ctx context.Context, input SignupInput) (*models.User, error) {
	normalized, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, ErrInvalidPassword
	}
	if err := s.auth.ValidatePassword(normalized, input.Password); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user != nil && (user.IsVerified || user.IsAdmin) {
		return nil, ErrEmailExists
	}
	if user != nil && user.IsBlocked {
		return nil, ErrUserBlocked
	}

	hashed, err := s.auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	creating := user == nil
	if creating {
		user = &models.User{
			Email:       normalized,
			DisplayName: resolveDisplayName(input.DisplayName, normalized),
			CreatedAt:   now,
		}
	} else if name := strings.TrimSpace(input.DisplayName); name != "" {
		user.DisplayName = name
	}
	user.PasswordHash = hashed
	user.UpdatedAt = now

	code, err := issueOTP(s.cfg.OTP, user, constants.OTPPurposeVerifyEmail, now)
	if err != nil {
		return nil, err
	}
	if creating {
		err = s.userRepo.Create(user)
	} else {
		err = s.userRepo.Update(user)
	}
	if err != nil {
		return nil, err
	}
	if err := s.deliverOTP(ctx, user, code, constants.OTPPurposeVerifyEmail, input.Locale); err != nil {
		return nil, err
	}
	logger.Infow("user_signup", "user_id", user.ID, "email", user.Email, "reissued", !creating)
	return user, nil
}

// VerifyEmail 校验注册验证码，成功后标记已验证并签发会话
func (s *UserAuthService) VerifyEmail(email, code string) (*Session, error) {
	user, err := s.findByEmail(email)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	if err := VerifyOTP(user, constants.OTPPurposeVerifyEmail, code, s.now()); err != nil {
		return nil, err
	}
	user.IsVerified = true
	return s.issueSession(user)
}

// ResendOTP 按用途重新发送验证码
func (s *UserAuthService) ResendOTP(ctx context.Context, email, purpose, locale string) error {
	purpose = normalizeOTPPurpose(purpose)
	if purpose == "" {
		purpose = constants.OTPPurposeVerifyEmail
	}
	if !isOTPPurposeSupported(purpose) {
		return ErrInvalidOTPPurpose
	}
	user, err := s.findByEmail(email)
	if err != nil {
		return err
	}
	if user.IsBlocked {
		return ErrUserBlocked
	}
	switch purpose {
	case constants.OTPPurposeVerifyEmail:
		if user.IsVerified {
			return ErrEmailAlreadyVerified
		}
	case constants.OTPPurposeLogin:
		if !user.IsVerified {
			return ErrEmailNotVerified
		}
	}
	return s.sendOTP(ctx, user, purpose, locale)
}

// Login 密码登录
// 校验顺序：用户存在、密码正确、未封禁、已验证邮箱
func (s *UserAuthService) Login(ctx context.Context, email, password, locale string) (*LoginResult, error) {
	user, err := s.checkCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if s.cfg.OTP.LoginStepTwo {
		if err := s.sendOTP(ctx, user, constants.OTPPurposeLogin, locale); err != nil {
			return nil, err
		}
		return &LoginResult{OTPRequired: true, User: user}, nil
	}
	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: session, User: user}, nil
}

// VerifyLoginOTP 登录二次验证
func (s *UserAuthService) VerifyLoginOTP(email, code string) (*Session, error) {
	user, err := s.findByEmail(email)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}
	if err := VerifyOTP(user, constants.OTPPurposeLogin, code, s.now()); err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// AdminLogin 管理员登录，非管理员返回 ErrNotAdmin
func (s *UserAuthService) AdminLogin(email, password string) (*Session, error) {
	user, err := s.checkCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrNotAdmin
	}
	return s.issueSession(user)
}

// ForgotPassword 发送重置密码验证码
func (s *UserAuthService) ForgotPassword(ctx context.Context, email, locale string) error {
	user, err := s.findByEmail(email)
	if err != nil {
		return err
	}
	if user.IsBlocked {
		return ErrUserBlocked
	}
	return s.sendOTP(ctx, user, constants.OTPPurposeReset, locale)
}

// ResetPassword 使用验证码重置密码，旧会话随令牌版本递增失效
func (s *UserAuthService) ResetPassword(email, code, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidPassword
	}
	if err := s.auth.ValidatePassword(email, newPassword); err != nil {
		return err
	}
	user, err := s.findByEmail(email)
	if err != nil {
		return err
	}
	if err := VerifyOTP(user, constants.OTPPurposeReset, code, s.now()); err != nil {
		return err
	}
	hashed, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	// 能收到验证码即证明邮箱归属
	user.IsVerified = true
	user.TokenVersion++
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	logger.Infow("user_password_reset", "user_id", user.ID)
	return nil
}

// ChangePassword 登录态修改密码
func (s *UserAuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetProfile(userID)
	if err != nil {
		return err
	}
	if err := s.auth.VerifyPassword(user.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if newPassword == "" {
		return ErrInvalidPassword
	}
	if err := s.auth.ValidatePassword(user.Email, newPassword); err != nil {
		return err
	}
	hashed, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	user.TokenVersion++
	user.UpdatedAt = s.now()
	return s.userRepo.Update(user)
}

// UpdateProfile 更新昵称与头像
func (s *UserAuthService) UpdateProfile(userID uint, update ProfileUpdate) (*models.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	updated := false
	if update.DisplayName != nil {
		if trimmed := strings.TrimSpace(*update.DisplayName); trimmed != "" {
			user.DisplayName = trimmed
			updated = true
		}
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
		updated = true
	}
	if !updated {
		return nil, ErrProfileEmpty
	}
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile 获取用户信息
func (s *UserAuthService) GetProfile(userID uint) (*models.User, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserAuthService) checkCredentials(email, password string) (*models.User, error) {
	user, err := s.findByEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}
	return user, nil
}

func (s *UserAuthService) findByEmail(email string) (*models.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByEmail(normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserAuthService) sendOTP(ctx context.Context, user *models.User, purpose, locale string) error {
	code, err := issueOTP(s.cfg.OTP, user, purpose, s.now())
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(user); err != nil {
		return err
	}
	return s.deliverOTP(ctx, user, code, purpose, locale)
}

func (s *UserAuthService) deliverOTP(ctx context.Context, user *models.User, code, purpose, locale string) error {
	if s.mailer == nil {
		return ErrEmailServiceNotConfigured
	}
	err := s.mailer.SendOTP(ctx, OTPMessage{
		Email:         user.Email,
		Code:          code,
		Purpose:       purpose,
		Locale:        locale,
		ExpireMinutes: resolveOTPExpireMinutes(s.cfg.OTP),
	})
	if err != nil {
		logger.Warnw("otp_delivery_failed", "user_id", user.ID, "purpose", purpose, "error", err)
		if errors.Is(err, ErrEmailSendFailed) || errors.Is(err, ErrEmailServiceNotConfigured) {
			return err
		}
		return ErrEmailSendFailed
	}
	return nil
}

// issueSession 签发会话并记录最后登录时间，同时持久化验证码清理等变更
func (s *UserAuthService) issueSession(user *models.User) (*Session, error) {
	token, expiresAt, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) (string, error) {
	return normalizeEmail(email)
}

func resolveDisplayName(name, email string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return email
}
