package admin

import (
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

var adminUserErrorRules = []handlershared.MappedError{
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrAdminProtected, Code: response.CodeForbidden, Key: "error.admin_protected"},
	{Target: service.ErrEmailExists, Code: response.CodeConflict, Key: "error.email_exists"},
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

var authzUserErrorRules = []handlershared.MappedError{
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrNotAdmin, Code: response.CodeBadRequest, Key: "error.authz_user_not_admin"},
}

var adminLoginErrorRules = []handlershared.MappedError{
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: service.ErrUserBlocked, Code: response.CodeForbidden, Key: "error.user_disabled"},
	{Target: service.ErrEmailNotVerified, Code: response.CodeEmailNotVerified, Key: "error.email_not_verified"},
	{Target: service.ErrNotAdmin, Code: response.CodeForbidden, Key: "error.forbidden"},
}
