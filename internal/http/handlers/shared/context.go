package shared

import (
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/models"

	"github.com/gin-gonic/gin"
)

// CurrentUserID 读取鉴权中间件写入的用户 ID，缺失时直接返回 401
func CurrentUserID(c *gin.Context) (uint, bool) {
	id := c.GetUint(constants.ContextKeyUserID)
	if id == 0 {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	return id, true
}

// CurrentUser 读取鉴权中间件写入的脱敏用户，未经过 UserJWTAuthMiddleware 时为 nil
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(constants.ContextKeyUser)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// RequestID 当前请求 ID
func RequestID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyRequestID)
}
