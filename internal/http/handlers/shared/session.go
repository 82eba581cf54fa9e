package shared

import (
	"time"

	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionPayload 会话响应体
func SessionPayload(session *service.Session) gin.H {
	return gin.H{
		"user":       session.User,
		"token":      session.Token,
		"token_type": "Bearer",
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	}
}
