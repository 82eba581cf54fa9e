package admin

import (
	"net/url"
	"strings"

	"github.com/polyva-3d/internal/authz"
	"github.com/polyva-3d/internal/constants"
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/models"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_authz_role_created", "role", role)
	h.recordAudit(c, models.AuditActionRoleCreate, models.AuditTargetRole, 0, role, nil)
	response.Success(c, gin.H{"role": role})
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_authz_policy_granted",
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	h.recordAudit(c, models.AuditActionPolicyGrant, models.AuditTargetRole, 0, req.Role, policyAuditDetail(req))
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_authz_policy_revoked",
		"role", req.Role,
		"object", req.Object,
		"action", req.Action,
	)
	h.recordAudit(c, models.AuditActionPolicyRevoke, models.AuditTargetRole, 0, req.Role, policyAuditDetail(req))
	response.Success(c, nil)
}

// GetAuthzUserRoles 查询管理员的角色分配，为空表示使用内置管理员角色
func (h *Handler) GetAuthzUserRoles(c *gin.Context) {
	user, ok := h.loadAuthzTarget(c, false)
	if !ok {
		return
	}
	roles, err := h.AuthzService.UserRoles(user.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"user_id": user.ID, "roles": roles, "builtin": len(roles) == 0})
}

// AssignAuthzUserRole 为管理员分配角色，覆盖原有分配
func (h *Handler) AssignAuthzUserRole(c *gin.Context) {
	user, ok := h.loadAuthzTarget(c, true)
	if !ok {
		return
	}
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	role, err := authz.NormalizeRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.AssignUserRole(user.ID, role); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	requestLog(c).Infow("admin_authz_user_role_assigned", "user_id", user.ID, "role", role)
	h.recordAudit(c, models.AuditActionRoleAssign, models.AuditTargetUser, user.ID, user.Email, models.JSON{"role": role})
	response.Success(c, gin.H{"user_id": user.ID, "roles": []string{role}, "builtin": false})
}

// ResetAuthzUserRole 清除管理员的角色分配，恢复内置管理员权限
func (h *Handler) ResetAuthzUserRole(c *gin.Context) {
	user, ok := h.loadAuthzTarget(c, true)
	if !ok {
		return
	}
	if err := h.AuthzService.RemoveUser(user.ID); err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	requestLog(c).Infow("admin_authz_user_role_reset", "user_id", user.ID)
	h.recordAudit(c, models.AuditActionRoleReset, models.AuditTargetUser, user.ID, user.Email, nil)
	response.Success(c, gin.H{"user_id": user.ID, "roles": []string{}, "builtin": true})
}

// ReloadAuthzPolicy 从数据库重新加载策略
func (h *Handler) ReloadAuthzPolicy(c *gin.Context) {
	if err := h.AuthzService.ReloadPolicy(); err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	requestLog(c).Infow("admin_authz_policy_reloaded")
	response.Success(c, nil)
}

// loadAuthzTarget 解析目标管理员；修改类操作不允许作用于自己
func (h *Handler) loadAuthzTarget(c *gin.Context, modify bool) (*models.User, bool) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return nil, false
	}
	if modify && id == c.GetUint(constants.ContextKeyUserID) {
		respondError(c, response.CodeBadRequest, "error.authz_self_assign", nil)
		return nil, false
	}
	user, err := h.AdminUserService.GetAdmin(id)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, authzUserErrorRules, response.CodeInternal, "error.user_fetch_failed")
		return nil, false
	}
	return user, true
}

func policyAuditDetail(req authzPolicyPayload) models.JSON {
	return models.JSON{"object": req.Object, "action": req.Action}
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
