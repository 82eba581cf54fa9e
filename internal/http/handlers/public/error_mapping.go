package public

import (
	handlershared "github.com/polyva-3d/internal/http/handlers/shared"
	"github.com/polyva-3d/internal/http/response"
	"github.com/polyva-3d/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = handlershared.MappedError

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackKey)
}

var accountErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidEmail, Code: response.CodeBadRequest, Key: "error.email_invalid"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: service.ErrUserBlocked, Code: response.CodeForbidden, Key: "error.user_disabled"},
	{Target: service.ErrEmailNotVerified, Code: response.CodeEmailNotVerified, Key: "error.email_not_verified"},
	{Target: service.ErrOTPInvalid, Code: response.CodeOTPInvalid, Key: "error.otp_invalid"},
}

var otpDeliveryErrorRules = []mappedHandlerError{
	{Target: service.ErrOTPTooFrequent, Code: response.CodeTooManyRequests, Key: "error.otp_too_frequent"},
	{Target: service.ErrInvalidOTPPurpose, Code: response.CodeBadRequest, Key: "error.otp_purpose_invalid"},
	{Target: service.ErrEmailAlreadyVerified, Code: response.CodeConflict, Key: "error.email_already_verified"},
	{Target: service.ErrEmailServiceNotConfigured, Code: response.CodeServiceUnavailable, Key: "error.email_service_not_configured"},
	{Target: service.ErrEmailSendFailed, Code: response.CodeBadGateway, Key: "error.email_send_failed"},
}

var passwordErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidPassword, Code: response.CodeBadRequest, Key: "error.password_invalid"},
	{Target: service.ErrWeakPassword, Code: response.CodeBadRequest, Key: "error.password_weak"},
}

var signupErrorRules = handlershared.ConcatMappedErrors(
	[]mappedHandlerError{{Target: service.ErrEmailExists, Code: response.CodeConflict, Key: "error.email_exists"}},
	accountErrorRules,
	passwordErrorRules,
	otpDeliveryErrorRules,
)

var loginErrorRules = handlershared.ConcatMappedErrors(accountErrorRules, otpDeliveryErrorRules)

var otpFlowErrorRules = handlershared.ConcatMappedErrors(accountErrorRules, passwordErrorRules, otpDeliveryErrorRules)

var modelErrorRules = []mappedHandlerError{
	{Target: service.ErrModelNotFound, Code: response.CodeNotFound, Key: "error.model_not_found"},
	{Target: service.ErrShareNotFound, Code: response.CodeNotFound, Key: "error.model_not_found"},
	{Target: service.ErrInvalidModelKind, Code: response.CodeBadRequest, Key: "error.model_kind_invalid"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}

var uploadErrorRules = []mappedHandlerError{
	{Target: service.ErrFileRequired, Code: response.CodeBadRequest, Key: "error.file_required"},
	{Target: service.ErrFileTooLarge, Code: response.CodePayloadTooLarge, Key: "error.file_too_large"},
	{Target: service.ErrInvalidFileType, Code: response.CodeBadRequest, Key: "error.file_type_invalid"},
}

var generationErrorRules = handlershared.ConcatMappedErrors(
	[]mappedHandlerError{
		{Target: service.ErrPromptRequired, Code: response.CodeBadRequest, Key: "error.prompt_required"},
		{Target: service.ErrPromptTooLong, Code: response.CodeBadRequest, Key: "error.prompt_too_long"},
		{Target: service.ErrImageRequired, Code: response.CodeBadRequest, Key: "error.image_required"},
		{Target: service.ErrGenerationUnavailable, Code: response.CodeServiceUnavailable, Key: "error.generation_unavailable"},
		{Target: service.ErrGenerationFailed, Code: response.CodeBadGateway, Key: "error.generation_failed"},
	},
	uploadErrorRules,
)

var generationJobErrorRules = []mappedHandlerError{
	{Target: service.ErrJobNotFound, Code: response.CodeNotFound, Key: "error.job_not_found"},
	{Target: service.ErrCallbackUnauthorized, Code: response.CodeUnauthorized, Key: "error.callback_unauthorized"},
	{Target: service.ErrJobFinished, Code: response.CodeConflict, Key: "error.job_finished"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.bad_request"},
}
