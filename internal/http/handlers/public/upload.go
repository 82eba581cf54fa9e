package public

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/polyva-3d/internal/http/response"

	"github.com/gin-gonic/gin"
)

// multipartOverhead 文件之外的表单字段与边界余量
const multipartOverhead int64 = 1 << 20

// UploadImage 上传单张图片
func (h *Handler) UploadImage(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}
	file, err := readFormFile(c, "file", h.Config.Upload.MaxSize)
	if err != nil {
		respondFormFileError(c, err, "error.file_required")
		return
	}

	uploaded, err := h.UploadService.SaveImage(c.Request.Context(), file, c.PostForm("scene"))
	if err != nil {
		respondWithMappedError(c, err, uploadErrorRules, response.CodeInternal, "error.upload_failed")
		return
	}
	response.Created(c, uploaded)
}

// readFormFile 解析 multipart 前先限制请求体，超限请求不会被整体缓冲或落盘
func readFormFile(c *gin.Context, field string, maxSize int64) (*multipart.FileHeader, error) {
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
	}
	return c.FormFile(field)
}

func respondFormFileError(c *gin.Context, err error, missingKey string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, response.CodePayloadTooLarge, "error.file_too_large", nil)
		return
	}
	respondError(c, response.CodeBadRequest, missingKey, nil)
}
