package public

import (
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// GetCurrentUser 获取当前登录用户
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserAuthService.GetProfile(userID)
	if err != nil {
		respondWithMappedError(c, err, accountErrorRules, response.CodeInternal, "error.user_fetch_failed")
		return
	}
	response.Success(c, user)
}

// UpdateProfile 更新昵称与头像
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	user, err := h.UserAuthService.UpdateProfile(userID, service.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		rules := append([]mappedHandlerError{
			{Target: service.ErrProfileEmpty, Code: response.CodeBadRequest, Key: "error.profile_empty"},
		}, accountErrorRules...)
		respondWithMappedError(c, err, rules, response.CodeInternal, "error.profile_update_failed")
		return
	}
	response.Success(c, user)
}

// ChangePassword 修改密码，成功后旧令牌失效
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.UserAuthService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		if handlershared.RespondPasswordPolicyError(c, err) {
			return
		}
		respondWithMappedError(c, err, handlershared.ConcatMappedErrors(passwordErrorRules, accountErrorRules), response.CodeInternal, "error.password_change_failed")
		return
	}
	response.Success(c, gin.H{"changed": true})
}

// GetMyLoginLogs 获取当前用户登录日志
func (h *Handler) GetMyLoginLogs(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePageQuery(c)

	logs, total, err := h.UserLoginLogService.ListByUser(userID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_login_log_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}
