package constants

// 一次性验证码用途
const (
	OTPPurposeVerifyEmail = "verify_email"
	OTPPurposeLogin       = "login"
	OTPPurposeReset       = "reset_password"
)

// 登录失败原因
const (
	LoginFailReasonInvalidEmail    = "invalid_email"
	LoginFailReasonUserNotFound    = "user_not_found"
	LoginFailReasonInvalidPassword = "invalid_password"
	LoginFailReasonUserBlocked     = "user_blocked"
	LoginFailReasonEmailUnverified = "email_unverified"
	LoginFailReasonNotAdmin        = "not_admin"
	LoginFailReasonOTPInvalid      = "otp_invalid"
	LoginFailReasonCaptchaInvalid  = "captcha_invalid"
	LoginFailReasonInternalError   = "internal_error"
)

// 验证码场景
const (
	CaptchaSceneLogin          = "login"
	CaptchaSceneSignup         = "signup"
	CaptchaSceneForgotPassword = "forgot_password"

	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 上传场景
const (
	UploadSceneGeneration = "generation"
	UploadSceneAvatar     = "avatar"
	UploadSceneCommon     = "common"
)

// 上下文键
const (
	ContextKeyRequestID = "request_id"
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyUser      = "user"
)

// 异步队列
const (
	QueueDefault       = "default"
	QueueCritical      = "critical"
	TaskSendOTPEmail   = "email:send_otp"
	TaskStorageCleanup = "storage:cleanup"
)

// 生成回调鉴权头
const HeaderGenerationCallbackSecret = "X-Callback-Secret"
