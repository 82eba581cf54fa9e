package public

import (
	"errors"

	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// GetConfig 获取前端所需的公开配置
func (h *Handler) GetConfig(c *gin.Context) {
	cfg := h.Config
	data := gin.H{
		"demo_mode":         cfg.Generation.DemoMode,
		"max_prompt_length": cfg.Generation.MaxPromptLength,
		"max_image_size":    cfg.Generation.MaxImageSize,
		"upload": gin.H{
			"max_size":      cfg.Upload.MaxSize,
			"allowed_types": cfg.Upload.AllowedTypes,
		},
		"otp": gin.H{
			"length":                  cfg.OTP.Length,
			"expire_minutes":          cfg.OTP.ExpireMinutes,
			"resend_interval_seconds": cfg.OTP.ResendIntervalSeconds,
			"login_step_two":          cfg.OTP.LoginStepTwo,
		},
	}
	if h.CaptchaService != nil {
		data["captcha"] = h.CaptchaService.PublicSetting()
	}
	response.Success(c, data)
}

// GetCaptcha 获取图片验证码挑战
func (h *Handler) GetCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeServiceUnavailable, "error.captcha_unavailable", service.ErrCaptchaConfigInvalid)
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		if errors.Is(err, service.ErrCaptchaConfigInvalid) {
			respondError(c, response.CodeBadRequest, "error.captcha_unavailable", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.captcha_generate_failed", err)
		return
	}

	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
