package admin

import (
	"errors"

	handlershared "github.com/agent-console/internal/http/handlers/shared"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

type errorMapping struct {
	target error
	code   int
}

var serviceErrorMappings = []errorMapping{
	{service.ErrUserNotFound, response.CodeNotFound},
	{service.ErrRoleNotFound, response.CodeNotFound},
	{service.ErrMenuNotFound, response.CodeNotFound},
	{service.ErrAnnouncementNotFound, response.CodeNotFound},
	{service.ErrSysConfigNotFound, response.CodeNotFound},
	{service.ErrAccountNotFound, response.CodeNotFound},
	{service.ErrExchangeCodeNotFound, response.CodeNotFound},
	{service.ErrInvitationCodeNotFound, response.CodeNotFound},

	{service.ErrInvalidCredentials, response.CodeUnauthorized},
	{service.ErrNotAdminAccount, response.CodeUnauthorized},
	{service.ErrUserDisabled, response.CodeUnauthorized},

	{service.ErrPermissionDenied, response.CodeForbidden},
	{service.ErrSuperuserProtected, response.CodeForbidden},
	{service.ErrSystemRoleProtected, response.CodeForbidden},
	{service.ErrRoleNotAssignable, response.CodeForbidden},

	{service.ErrConcurrencyConflict, response.CodeConflict},
	{service.ErrRoleInUse, response.CodeConflict},
	{service.ErrDuplicateUsername, response.CodeConflict},
	{service.ErrDuplicateEmail, response.CodeConflict},
	{service.ErrDuplicateRoleName, response.CodeConflict},
	{service.ErrDuplicateTransactionID, response.CodeConflict},
	{service.ErrDuplicateExchangeCode, response.CodeConflict},

	{service.ErrInvalidPermissionTag, response.CodeBadRequest},
	{service.ErrCaptchaRequired, response.CodeBadRequest},
	{service.ErrCaptchaInvalid, response.CodeBadRequest},
	{service.ErrCircularHierarchy, response.CodeBadRequest},
	{service.ErrInvalidAmount, response.CodeBadRequest},
	{service.ErrInsufficientBalance, response.CodeBadRequest},
	{service.ErrSelfTransfer, response.CodeBadRequest},
	{service.ErrInvalidRechargeMethod, response.CodeBadRequest},
	{service.ErrExchangeCodeAlreadyUsed, response.CodeBadRequest},
	{service.ErrExchangeCodeExpired, response.CodeBadRequest},
	{service.ErrMenuHasChildren, response.CodeBadRequest},
	{service.ErrCodeSpaceExhausted, response.CodeInternal},
}

// respondServiceError 将服务层哨兵错误映射为统一响应码
func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	if err == nil {
		return
	}
	for _, mapping := range serviceErrorMappings {
		if errors.Is(err, mapping.target) {
			response.Error(c, mapping.code, mapping.target.Error())
			return
		}
	}
	respondError(c, response.CodeInternal, fallbackMsg, err)
}
