package service

import "errors"

// 通用错误
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// 账号与认证
var (
	ErrInvalidEmail              = errors.New("invalid email")
	ErrEmailExists               = errors.New("email already registered")
	ErrUserNotFound              = errors.New("user not found")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrInvalidPassword           = errors.New("invalid password")
	ErrWeakPassword              = errors.New("weak password")
	ErrUserBlocked               = errors.New("user blocked")
	ErrEmailNotVerified          = errors.New("email not verified")
	ErrEmailAlreadyVerified      = errors.New("email already verified")
	ErrNotAdmin                  = errors.New("admin privileges required")
	ErrAdminProtected            = errors.New("admin account is protected")
	ErrProfileEmpty              = errors.New("profile update is empty")
	ErrInvalidToken              = errors.New("invalid token")
	ErrOTPInvalid                = errors.New("code is invalid or expired")
	ErrOTPTooFrequent            = errors.New("code requested too frequently")
	ErrInvalidOTPPurpose         = errors.New("invalid code purpose")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailSendFailed           = errors.New("email send failed")
)

// 验证码
var (
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)

// 上传
var (
	ErrFileRequired    = errors.New("file required")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrStorageFailed   = errors.New("storage failed")
)

// 模型与生成
var (
	ErrModelNotFound         = errors.New("model not found")
	ErrInvalidModelKind      = errors.New("invalid model kind")
	ErrShareNotFound         = errors.New("shared model not found")
	ErrPromptRequired        = errors.New("prompt required")
	ErrPromptTooLong         = errors.New("prompt too long")
	ErrImageRequired         = errors.New("image required")
	ErrJobNotFound           = errors.New("generation job not found")
	ErrJobFinished           = errors.New("generation job already finished")
	ErrCallbackUnauthorized  = errors.New("generation callback unauthorized")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	ErrGenerationFailed      = errors.New("generation failed")
)
