package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/models"
	"github.com/polyva-3d/internal/repository"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

var adminModelErrorRules = []handlershared.MappedError{
	{Target: service.ErrModelNotFound, Code: response.CodeNotFound, Key: "error.model_not_found"},
	{Target: service.ErrInvalidModelKind, Code: response.CodeBadRequest, Key: "error.model_kind_invalid"},
}

// GetAdminModels 获取模型列表
func (h *Handler) GetAdminModels(c *gin.Context) {
	page, pageSize := handlershared.ParsePageQuery(c)

	var userID uint
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		userID = uint(parsed)
	}
	kind := strings.TrimSpace(c.Query("kind"))
	if kind != "" && !models.IsValidModelKind(kind) {
		respondError(c, response.CodeBadRequest, "error.model_kind_invalid", nil)
		return
	}
	isPublic, err := handlershared.ParseBoolQuery(c, "is_public")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	isDemo, err := handlershared.ParseBoolQuery(c, "is_demo")
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

	items, total, err := h.ModelService.AdminList(repository.ModelListFilter{
		Page:        page,
		PageSize:    pageSize,
		UserID:      userID,
		Kind:        kind,
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		IsPublic:    isPublic,
		IsDemo:      isDemo,
		WithOwner:   true,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminModelErrorRules, response.CodeInternal, "error.model_fetch_failed")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetAdminModel 获取模型详情
func (h *Handler) GetAdminModel(c *gin.Context) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}

	model, err := h.ModelService.AdminGet(id)
	if err != nil {
		handlershared.RespondWithMappedError(c, err, adminModelErrorRules, response.CodeInternal, "error.model_fetch_failed")
		return
	}
	response.Success(c, model)
}

// DeleteAdminModel 删除模型
func (h *Handler) DeleteAdminModel(c *gin.Context) {
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}

	if err := h.ModelService.AdminDelete(c.Request.Context(), id); err != nil {
		handlershared.RespondWithMappedError(c, err, adminModelErrorRules, response.CodeInternal, "error.model_delete_failed")
		return
	}
	h.recordAudit(c, models.AuditActionModelDelete, models.AuditTargetModel, id, "", nil)
	response.Success(c, gin.H{"deleted": true})
}
