package admin

import (
	"strings"

	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateAdminUserRequest 管理员更新用户请求
type UpdateAdminUserRequest struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
	IsVerified  *bool   `json:"is_verified"`
}

// GetAdminUsers 获取用户列表（不含管理员）
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, pageSize := handlershared.ParsePageQuery(c)

	isVerified, err := handlershared.ParseBoolQuery(c, "is_verified")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	isBlocked, err := handlershared.ParseBoolQuery(c, "is_blocked")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	lastLoginFrom, err := handlershared.ParseTimeNullable(c.Query("last_login_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	lastLoginTo, err := handlershared.ParseTimeNullable(c.Query("last_login_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	users, total, err := h.AdminUserService.List(repository.UserListFilter{
		Page:          page,
		PageSize:      pageSize,
		Keyword:       strings.TrimSpace(c.Query("keyword")),
		IsVerified:    isVerified,
		IsBlocked:     isBlocked,
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
		LastLoginFrom: lastLoginFrom,
		LastLoginTo:   lastLoginTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// GetAdminUser 获取用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	user, err := h.AdminUserService.Get(id)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminUserErrorRules, response.CodeInternal, "error.user_fetch_failed")
		return
	}
	response.Success(c, user)
}

// UpdateAdminUser 更新用户昵称、邮箱与验证状态
func (h *Handler) UpdateAdminUser(c *gin.Context) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	var req UpdateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	user, err := h.AdminUserService.Update(id, service.AdminUserUpdate{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		IsVerified:  req.IsVerified,
	})
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminUserErrorRules, response.CodeInternal, "error.user_update_failed")
		return
	}
	h.recordAudit(c, models.AuditActionUserUpdate, models.AuditTargetUser, user.ID, user.Email, updateAuditDetail(req))
	response.Success(c, user)
}

// ToggleAdminUserBlock 切换封禁状态
func (h *Handler) ToggleAdminUserBlock(c *gin.Context) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	user, err := h.AdminUserService.ToggleBlock(id)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminUserErrorRules, response.CodeInternal, "error.user_update_failed")
		return
	}
	requestLog(c).Infow("admin_user_block_toggled", "user_id", user.ID, "blocked", user.IsBlocked)
	action := models.AuditActionUserUnblock
	if user.IsBlocked {
		action = models.AuditActionUserBlock
	}
	h.recordAudit(c, action, models.AuditTargetUser, user.ID, user.Email, nil)
	response.Success(c, user)
}

// DeleteAdminUser 删除用户及其全部模型
func (h *Handler) DeleteAdminUser(c *gin.Context) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	removed, err := h.AdminUserService.Delete(c.Request.Context(), id)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminUserErrorRules, response.CodeInternal, "error.user_delete_failed")
		return
	}
	if h.AuthzService != nil {
		if err := h.AuthzService.RemoveUser(id); err != nil {
			requestLog(c).Warnw("admin_user_authz_cleanup_failed", "user_id", id, "error", err)
		}
	}
	h.recordAudit(c, models.AuditActionUserDelete, models.AuditTargetUser, id, "", models.JSON{"models_removed": removed})
	response.Success(c, gin.H{
		"deleted":        true,
		"models_removed": removed,
	})
}

func updateAuditDetail(req UpdateAdminUserRequest) models.JSON {
	detail := models.JSON{}
	if req.DisplayName != nil {
		detail["display_name"] = *req.DisplayName
	}
	if req.Email != nil {
		detail["email"] = *req.Email
	}
	if req.IsVerified != nil {
		detail["is_verified"] = *req.IsVerified
	}
	return detail
}
