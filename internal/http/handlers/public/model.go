package public

import (
	"strings"

	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateModelRequest 更新模型请求
type UpdateModelRequest struct {
	Title    *string `json:"title"`
	IsPublic *bool   `json:"is_public"`
}

// ListMyModels 分页查询当前用户的模型
func (h *Handler) ListMyModels(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePageQuery(c)

	items, total, err := h.ModelService.ListByUser(userID, service.ModelQuery{
		Page:     page,
		PageSize: pageSize,
		Kind:     strings.TrimSpace(c.Query("kind")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	})
	if err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_fetch_failed")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetMyModel 获取模型详情
func (h *Handler) GetMyModel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}

	model, err := h.ModelService.GetForUser(userID, id)
	if err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_fetch_failed")
		return
	}
	response.Success(c, model)
}

// UpdateMyModel 更新模型标题或可见性
func (h *Handler) UpdateMyModel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}
	var req UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	model, err := h.ModelService.Update(c.Request.Context(), userID, id, service.ModelUpdate{
		Title:    req.Title,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_update_failed")
		return
	}
	response.Success(c, model)
}

// DeleteMyModel 删除模型
func (h *Handler) DeleteMyModel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}

	if err := h.ModelService.Delete(c.Request.Context(), userID, id); err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_delete_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ShareModel 生成分享链接，重复调用返回同一令牌
func (h *Handler) ShareModel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}

	model, err := h.ModelService.Share(c.Request.Context(), userID, id)
	if err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_share_failed")
		return
	}
	token := ""
	if model.ShareToken != nil {
		token = *model.ShareToken
	}
	response.Success(c, gin.H{
		"share_token": token,
		"share_path":  "/api/v1/share/" + token,
		"model":       model,
	})
}

// UnshareModel 取消公开，保留令牌
func (h *Handler) UnshareModel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.model_id_invalid", nil)
		return
	}

	model, err := h.ModelService.Unshare(c.Request.Context(), userID, id)
	if err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_share_failed")
		return
	}
	response.Success(c, model)
}

// GetSharedModel 通过分享令牌查看公开模型
func (h *Handler) GetSharedModel(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		respondError(c, response.CodeNotFound, "error.model_not_found", nil)
		return
	}

	model, err := h.ModelService.GetShared(token)
	if err != nil {
		respondWithMappedError(c, err, modelErrorRules, response.CodeInternal, "error.model_fetch_failed")
		return
	}
	response.Success(c, model)
}

// GetShowcase 公开作品列表
func (h *Handler) GetShowcase(c *gin.Context) {
	page, pageSize := handlershared.ParsePageQuery(c)

	result, err := h.ModelService.Showcase(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.model_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, result.Items, response.BuildPagination(page, pageSize, result.Total))
}
