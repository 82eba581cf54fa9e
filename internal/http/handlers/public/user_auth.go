package public

import (
	"strings"

	"github.com/polyva-3d/internal/constants"
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/i18n"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// SignupRequest 注册请求
type SignupRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	DisplayName    string                              `json:"display_name"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// VerifyCodeRequest 邮箱 + 验证码请求
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ResendOTPRequest 重新发送验证码请求
type ResendOTPRequest struct {
	Email   string `json:"email" binding:"required"`
	Purpose string `json:"purpose"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email          string                              `json:"email" binding:"required"`
	Password       string                              `json:"password" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// ForgotPasswordRequest 忘记密码请求
type ForgotPasswordRequest struct {
	Email          string                              `json:"email" binding:"required"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// Signup 用户注册，创建未验证账号并发送邮箱验证码
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptcha(c, constants.CaptchaSceneSignup, req.CaptchaPayload) {
		return
	}

	user, err := h.UserAuthService.Signup(c.Request.Context(), service.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Locale:      i18n.ResolveLocale(c),
	})
	if err != nil {
		if handlershared.RespondPasswordPolicyError(c, err) {
			return
		}
		respondWithMappedError(c, err, signupErrorRules, response.CodeInternal, "error.signup_failed")
		return
	}

	response.Created(c, gin.H{
		"user":         user,
		"otp_required": true,
	})
}

// VerifyEmail 校验注册验证码并签发会话
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	session, err := h.UserAuthService.VerifyEmail(req.Email, req.Code)
	if err != nil {
		h.recordUserLogin(c, req.Email, 0, err, models.LoginSourceVerify)
		respondWithMappedError(c, err, otpFlowErrorRules, response.CodeInternal, "error.verify_failed")
		return
	}

	h.recordUserLogin(c, session.User.Email, session.User.ID, nil, models.LoginSourceVerify)
	response.Success(c, handlershared.SessionPayload(session))
}

// ResendOTP 重新发送验证码
func (h *Handler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.UserAuthService.ResendOTP(c.Request.Context(), req.Email, req.Purpose, i18n.ResolveLocale(c)); err != nil {
		respondWithMappedError(c, err, otpFlowErrorRules, response.CodeInternal, "error.otp_send_failed")
		return
	}
	response.Success(c, gin.H{"sent": true})
}

// Login 密码登录；开启二次验证时返回 otp_required
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.recordUserLogin(c, req.Email, 0, service.ErrInvalidInput, models.LoginSourcePassword)
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptchaForLogin(c, req.Email, req.CaptchaPayload) {
		return
	}

	result, err := h.UserAuthService.Login(c.Request.Context(), req.Email, req.Password, i18n.ResolveLocale(c))
	if err != nil {
		h.recordUserLogin(c, req.Email, 0, err, models.LoginSourcePassword)
		respondWithMappedError(c, err, loginErrorRules, response.CodeInternal, "error.login_failed")
		return
	}

	if result.OTPRequired {
		response.Success(c, gin.H{
			"otp_required": true,
			"email":        result.User.Email,
		})
		return
	}
	h.recordUserLogin(c, result.User.Email, result.User.ID, nil, models.LoginSourcePassword)
	response.Success(c, handlershared.SessionPayload(result.Session))
}

// VerifyLoginOTP 登录二次验证
func (h *Handler) VerifyLoginOTP(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	session, err := h.UserAuthService.VerifyLoginOTP(req.Email, req.Code)
	if err != nil {
		h.recordUserLogin(c, req.Email, 0, err, models.LoginSourceOTP)
		respondWithMappedError(c, err, loginErrorRules, response.CodeInternal, "error.login_failed")
		return
	}

	h.recordUserLogin(c, session.User.Email, session.User.ID, nil, models.LoginSourceOTP)
	response.Success(c, handlershared.SessionPayload(session))
}

// ForgotPassword 发送重置密码验证码
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if !h.verifyCaptcha(c, constants.CaptchaSceneForgotPassword, req.CaptchaPayload) {
		return
	}

	if err := h.UserAuthService.ForgotPassword(c.Request.Context(), req.Email, i18n.ResolveLocale(c)); err != nil {
		respondWithMappedError(c, err, otpFlowErrorRules, response.CodeInternal, "error.otp_send_failed")
		return
	}
	response.Success(c, gin.H{"sent": true})
}

// ResetPassword 使用验证码重置密码
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.UserAuthService.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		if handlershared.RespondPasswordPolicyError(c, err) {
			return
		}
		respondWithMappedError(c, err, otpFlowErrorRules, response.CodeInternal, "error.password_reset_failed")
		return
	}
	response.Success(c, gin.H{"reset": true})
}

// verifyCaptcha 按场景校验验证码，失败时已写入响应
func (h *Handler) verifyCaptcha(c *gin.Context, scene string, payload handlershared.CaptchaPayloadRequest) bool {
	if h.CaptchaService == nil {
		return true
	}
	if err := h.CaptchaService.Verify(scene, payload.ToServicePayload()); err != nil {
		respondWithMappedError(c, err, handlershared.CaptchaErrorRules, response.CodeInternal, "error.captcha_verify_failed")
		return false
	}
	return true
}

func (h *Handler) verifyCaptchaForLogin(c *gin.Context, email string, payload handlershared.CaptchaPayloadRequest) bool {
	if h.CaptchaService == nil {
		return true
	}
	if err := h.CaptchaService.Verify(constants.CaptchaSceneLogin, payload.ToServicePayload()); err != nil {
		h.recordUserLogin(c, email, 0, err, models.LoginSourcePassword)
		respondWithMappedError(c, err, handlershared.CaptchaErrorRules, response.CodeInternal, "error.captcha_verify_failed")
		return false
	}
	return true
}

// recordUserLogin 记录登录结果，err 为空视为成功
func (h *Handler) recordUserLogin(c *gin.Context, email string, userID uint, err error, source string) {
	if h == nil || h.UserLoginLogService == nil {
		return
	}
	status := models.LoginStatusSuccess
	if err != nil {
		status = models.LoginStatusFailed
	}
	if recordErr := h.UserLoginLogService.Record(service.RecordUserLoginInput{
		UserID:      userID,
		Email:       strings.TrimSpace(email),
		Status:      status,
		FailReason:  service.ResolveLoginFailReason(err),
		ClientIP:    c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		LoginSource: source,
		RequestID:   currentRequestID(c),
	}); recordErr != nil {
		requestLog(c).Warnw("user_login_log_record_failed", "email", email, "error", recordErr)
	}
}
