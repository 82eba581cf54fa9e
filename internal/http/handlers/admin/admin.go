package admin

import (
	"strings"

	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 管理员登录，仅管理员账号可签发会话
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	session, err := h.UserAuthService.AdminLogin(req.Email, req.Password)
	if err != nil {
		h.recordAdminLogin(c, req.Email, 0, err)
		handlershared.RespondWithMappedError(c, err, adminLoginErrorRules, response.CodeInternal, "error.login_failed")
		return
	}

	h.recordAdminLogin(c, session.User.Email, session.User.ID, nil)
	response.Success(c, handlershared.SessionPayload(session))
}

// GetAdminMe 获取当前管理员信息
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	user, err := h.UserAuthService.GetProfile(adminID)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminUserErrorRules, response.CodeInternal, "error.user_fetch_failed")
		return
	}
	response.Success(c, user)
}

func (h *Handler) recordAdminLogin(c *gin.Context, email string, userID uint, err error) {
	if h.UserLoginLogService == nil {
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
		LoginSource: models.LoginSourceAdmin,
		RequestID:   currentRequestID(c),
	}); recordErr != nil {
		requestLog(c).Warnw("admin_login_log_record_failed", "email", email, "error", recordErr)
	}
}
