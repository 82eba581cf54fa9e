package admin

import (
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 管理端接口：用户、模型、登录日志、审计、看板与权限
// 所有路由挂在 UserJWTAuthMiddleware 与 AdminMiddleware 之后，登录接口除外
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.CurrentUserID(c)
}

func currentRequestID(c *gin.Context) string {
	return handlershared.RequestID(c)
}
