package public

import (
	"strings"

	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// GenerateTextRequest 文本生成请求
type GenerateTextRequest struct {
	Prompt string `json:"prompt"`
	Title  string `json:"title"`
	Format string `json:"format"`
}

// GenerateFromText 文本生成 3D 模型
func (h *Handler) GenerateFromText(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req GenerateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.GenerationService.GenerateFromText(c.Request.Context(), userID, service.TextGenerationInput{
		Prompt: req.Prompt,
		Title:  req.Title,
		Format: req.Format,
	})
	if err != nil {
		respondWithMappedError(c, err, generationErrorRules, response.CodeInternal, "error.generation_failed")
		return
	}
	respondGenerationResult(c, result)
}

// GenerateFromImage 图片生成 3D 模型，multipart 字段 image
func (h *Handler) GenerateFromImage(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	maxSize := h.Config.Generation.MaxImageSize
	if maxSize <= 0 {
		maxSize = h.Config.Upload.MaxSize
	}
	file, err := readFormFile(c, "image", maxSize)
	if err != nil {
		respondFormFileError(c, err, "error.image_required")
		return
	}

	result, err := h.GenerationService.GenerateFromImage(c.Request.Context(), userID, service.ImageGenerationInput{
		File:   file,
		Title:  c.PostForm("title"),
		Format: c.PostForm("format"),
	})
	if err != nil {
		respondWithMappedError(c, err, generationErrorRules, response.CodeInternal, "error.generation_failed")
		return
	}
	respondGenerationResult(c, result)
}

// GetGenerationJob 查询生成任务
func (h *Handler) GetGenerationJob(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	job, err := h.GenerationService.GetJob(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithMappedError(c, err, generationJobErrorRules, response.CodeInternal, "error.job_fetch_failed")
		return
	}
	response.Success(c, job)
}

// GenerationCallback 外部生成服务完成回调，使用共享密钥鉴权
func (h *Handler) GenerationCallback(c *gin.Context) {
	var req service.CallbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	secret := strings.TrimSpace(c.GetHeader(constants.HeaderGenerationCallbackSecret))

	job, err := h.GenerationService.HandleCallback(c.Request.Context(), c.Param("id"), secret, req)
	if err != nil {
		requestLog(c).Warnw("generation_callback_rejected", "job_id", c.Param("id"), "error", err)
		respondWithMappedError(c, err, generationJobErrorRules, response.CodeInternal, "error.generation_callback_failed")
		return
	}
	response.Success(c, job)
}

// respondGenerationResult 同步完成返回 201，外部异步处理中返回 202
func respondGenerationResult(c *gin.Context, result *service.GenerationResult) {
	if result.Model == nil {
		response.Accepted(c, gin.H{"job": result.Job})
		return
	}
	response.Created(c, gin.H{
		"job":   result.Job,
		"model": result.Model,
	})
}
