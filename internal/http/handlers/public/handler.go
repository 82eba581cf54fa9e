package public

import (
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 用户侧接口：认证、个人中心、模型、分享、上传与生成
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// getUserID 当前登录用户，未登录时已写入 401
func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.CurrentUserID(c)
}

func currentRequestID(c *gin.Context) string {
	return handlershared.RequestID(c)
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}
