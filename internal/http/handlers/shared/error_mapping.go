package shared

import (
	"errors"

	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/i18n"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondWithMappedError 按规则顺序匹配错误，未命中时使用兜底响应并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组映射规则。
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// CaptchaErrorRules 验证码校验错误映射
var CaptchaErrorRules = []MappedError{
	{Target: service.ErrCaptchaRequired, Code: response.CodeBadRequest, Key: "error.captcha_required"},
	{Target: service.ErrCaptchaInvalid, Code: response.CodeBadRequest, Key: "error.captcha_invalid"},
	{Target: service.ErrCaptchaConfigInvalid, Code: response.CodeInternal, Key: "error.captcha_config_invalid"},
}

type passwordPolicyViolation interface {
	Key() string
	Args() []interface{}
}

// RespondPasswordPolicyError 密码策略不满足时返回带参数的提示，已处理返回 true。
func RespondPasswordPolicyError(c *gin.Context, err error) bool {
	var violation passwordPolicyViolation
	if !errors.As(err, &violation) {
		return false
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), violation.Key(), violation.Args()...)
	RespondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
	return true
}
