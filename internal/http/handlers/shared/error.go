package shared

import (
	"github.com/polyva-3d/internal/constants"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/i18n"
	"github.com/polyva-3d/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get(constants.ContextKeyRequestID); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按 key 返回国际化错误响应，原始错误只进日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	respond(c, code, key, i18n.T(i18n.ResolveLocale(c), key), err)
}

// RespondErrorWithMsg 返回已格式化的错误消息，原始错误只进日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	respond(c, code, "", msg, err)
}

func respond(c *gin.Context, code int, key, msg string, err error) {
	if err != nil {
		log := RequestLog(c)
		// 5xx 为服务端故障，其余为预期内的业务拒绝
		if response.HTTPStatus(code) >= 500 {
			log.Errorw("handler_error", "code", code, "key", key, "error", err)
		} else {
			log.Warnw("handler_rejected", "code", code, "key", key, "error", err)
		}
	}
	response.Error(c, code, msg)
}
