package response

import "net/http"

const (
	CodeOK                 = 0
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeConflict           = 409
	CodePayloadTooLarge    = 413
	CodeTooManyRequests    = 429
	CodeInternal           = 500
	CodeBadGateway         = 502
	CodeServiceUnavailable = 503

	// CodeEmailNotVerified 账号未完成邮箱验证（HTTP 401）
	CodeEmailNotVerified = 4011
	// CodeOTPInvalid 验证码错误或已过期（HTTP 400）
	CodeOTPInvalid = 4001
)

// HTTPStatus 将业务码映射为 HTTP 状态码
// 三位业务码与 HTTP 状态一致，四位业务码取前三位
func HTTPStatus(code int) int {
	switch {
	case code == CodeOK:
		return http.StatusOK
	case code >= 400 && code < 600:
		return code
	case code >= 4000 && code < 6000:
		return code / 10
	default:
		return http.StatusOK
	}
}
