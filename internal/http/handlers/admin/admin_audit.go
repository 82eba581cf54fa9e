package admin

import (
	"strconv"
	"strings"

	"github.com/polyva-3d/internal/constants"
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminAuditLogs 获取管理端审计日志
func (h *Handler) GetAdminAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.ParsePageQuery(c)

	operatorID, err := parseOptionalUint(c.Query("operator_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	targetID, err := parseOptionalUint(c.Query("target_id"))
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

	logs, total, err := h.AdminAuditService.ListForAdmin(repository.AdminAuditLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		OperatorID:  operatorID,
		Action:      c.Query("action"),
		TargetType:  c.Query("target_type"),
		TargetID:    targetID,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.audit_log_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}

// recordAudit 记录管理员写操作，失败仅告警
func (h *Handler) recordAudit(c *gin.Context, action, targetType string, targetID uint, label string, detail models.JSON) {
	if h.AdminAuditService == nil {
		return
	}
	input := service.AdminAuditRecordInput{
		Action:      action,
		TargetType:  targetType,
		TargetLabel: label,
		RequestID:   currentRequestID(c),
		Detail:      detail,
	}
	if operator := handlershared.CurrentUser(c); operator != nil {
		input.OperatorID = operator.ID
		input.OperatorEmail = operator.Email
	}
	if input.OperatorID == 0 {
		input.OperatorID = c.GetUint(constants.ContextKeyUserID)
	}
	if targetID > 0 {
		id := targetID
		input.TargetID = &id
	}
	if err := h.AdminAuditService.Record(input); err != nil {
		requestLog(c).Warnw("admin_audit_record_failed", "action", action, "error", err)
	}
}

func parseOptionalUint(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}
