package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/polyva-3d/internal/config"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/i18n"
	"github.com/polyva-3d/internal/logger"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	AttemptScopeLogin      = "login"
	AttemptScopeAdminLogin = "admin_login"
	AttemptScopeOTP        = "otp"
)

// AttemptSubject 从请求中取出被计数的主体
type AttemptSubject func(*gin.Context) string

// AttemptLimit 认证接口固定窗口尝试上限，按 scope 分桶
type AttemptLimit struct {
	Scope       string
	Prefix      string
	Window      time.Duration
	MaxAttempts int
	MessageKey  string
}

// NewAttemptLimit 由安全配置构建尝试上限，窗口或次数非正时不限流
func NewAttemptLimit(redisPrefix, scope string, cfg config.RateLimitConfig, messageKey string) AttemptLimit {
	return AttemptLimit{
		Scope:       scope,
		Prefix:      fmt.Sprintf("%s:attempt:%s", redisPrefix, scope),
		Window:      time.Duration(cfg.WindowSeconds) * time.Second,
		MaxAttempts: cfg.MaxAttempts,
		MessageKey:  messageKey,
	}
}

func (l AttemptLimit) enabled() bool {
	return l.Window >= time.Second && l.MaxAttempts > 0
}

func (l AttemptLimit) key(subject string) string {
	return l.Prefix + ":" + subject
}

// 首次计数时设置窗口过期，返回当前次数与剩余秒数
var attemptScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

func (l AttemptLimit) hit(ctx context.Context, client *redis.Client, subject string) (int64, int64, error) {
	values, err := attemptScript.Run(ctx, client, []string{l.key(subject)}, int(l.Window/time.Second)).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) < 2 {
		return 0, 0, fmt.Errorf("attempt limit: unexpected script reply %v", values)
	}
	return values[0], values[1], nil
}

// AttemptLimitMiddleware 超出上限返回 429 与 Retry-After；Redis 故障时放行并记录告警
func AttemptLimitMiddleware(client *redis.Client, limit AttemptLimit, subject AttemptSubject) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !limit.enabled() {
			c.Next()
			return
		}
		who := ""
		if subject != nil {
			who = strings.TrimSpace(subject(c))
		}
		if who == "" {
			who = c.ClientIP()
		}

		count, ttl, err := limit.hit(c.Request.Context(), client, who)
		if err != nil {
			logger.Warnw("attempt_limit_unavailable", "scope", limit.Scope, "error", err)
			c.Next()
			return
		}
		if count > int64(limit.MaxAttempts) {
			wait := retryAfterSeconds(ttl, limit.Window)
			logger.Infow("attempt_limited", "scope", limit.Scope, "client_ip", c.ClientIP(), "attempts", count)
			c.Header("Retry-After", strconv.Itoa(wait))
			msgKey := strings.TrimSpace(limit.MessageKey)
			if msgKey == "" {
				msgKey = "error.rate_limited"
			}
			response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, wait))
			c.Abort()
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(ttl int64, window time.Duration) int {
	if ttl > 0 {
		return int(ttl)
	}
	if seconds := int(window / time.Second); seconds > 0 {
		return seconds
	}
	return 1
}

// SubjectByIP 仅按客户端 IP 计数
func SubjectByIP(c *gin.Context) string {
	return c.ClientIP()
}

// SubjectByEmail 按规范化邮箱 + IP 计数，邮箱无效时退化为 IP
func SubjectByEmail(c *gin.Context) string {
	email, err := service.NormalizeEmail(readJSONField(c, "email"))
	if err != nil {
		return c.ClientIP()
	}
	return email + "|" + c.ClientIP()
}

// readJSONField 读取 JSON 字段后回填请求体，供后续绑定
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return value
}
