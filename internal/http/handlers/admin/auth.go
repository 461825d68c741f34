package admin

import (
	"errors"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/queue"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCaptcha 获取登录验证码
func (h *Handler) GetCaptcha(c *gin.Context) {
	if h.CaptchaService == nil || !h.CaptchaService.Enabled() {
		response.Success(c, gin.H{"provider": constants.CaptchaProviderNone})
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		respondError(c, response.CodeInternal, "验证码生成失败", err)
		return
	}
	response.Success(c, gin.H{
		"provider":     constants.CaptchaProviderImage,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// Login 管理端登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	if h.CaptchaService != nil {
		captchaErr := h.CaptchaService.Verify(service.CaptchaVerifyPayload{
			CaptchaID:   req.CaptchaID,
			CaptchaCode: req.CaptchaCode,
		})
		if captchaErr != nil {
			switch {
			case errors.Is(captchaErr, service.ErrCaptchaRequired):
				h.recordLoginResult(c, 0, req.Username, constants.LoginLogFailReasonCaptchaRequired)
				respondError(c, response.CodeBadRequest, service.ErrCaptchaRequired.Error(), nil)
			case errors.Is(captchaErr, service.ErrCaptchaInvalid):
				h.recordLoginResult(c, 0, req.Username, constants.LoginLogFailReasonCaptchaInvalid)
				respondError(c, response.CodeBadRequest, service.ErrCaptchaInvalid.Error(), nil)
			default:
				respondError(c, response.CodeInternal, "验证码校验失败", captchaErr)
			}
			return
		}
	}

	user, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.recordLoginResult(c, 0, req.Username, constants.LoginLogFailReasonInvalidCredentials)
		case errors.Is(err, service.ErrUserDisabled):
			h.recordLoginResult(c, 0, req.Username, constants.LoginLogFailReasonUserDisabled)
		case errors.Is(err, service.ErrNotAdminAccount):
			h.recordLoginResult(c, 0, req.Username, constants.LoginLogFailReasonNotAdminAccount)
		default:
			h.recordLoginResult(c, 0, req.Username, constants.LoginLogFailReasonInternalError)
		}
		respondServiceError(c, err, "登录失败")
		return
	}

	h.recordLoginResult(c, user.ID, user.Username, "")
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":           user.ID,
			"username":     user.Username,
			"alias":        user.Alias,
			"is_superuser": user.IsSuperuser,
		},
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetUserInfo 获取当前登录用户信息
func (h *Handler) GetUserInfo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	user, err := h.AgentService.GetUser(userID)
	if err != nil {
		respondServiceError(c, err, "获取用户信息失败")
		return
	}
	roles, err := h.AgentService.GetUserRoles(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户角色失败", err)
		return
	}
	permissions, err := h.PermissionService.ResolveForUser(user)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户权限失败", err)
		return
	}

	response.Success(c, gin.H{
		"user":              user,
		"roles":             roles,
		"agent_permissions": permissions,
	})
}

// GetUserMenus 获取当前登录用户可见菜单树
func (h *Handler) GetUserMenus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	tree, err := h.MenuService.UserMenuTree(userID)
	if err != nil {
		respondServiceError(c, err, "获取菜单失败")
		return
	}
	response.Success(c, tree)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword 修改本人密码
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	if err := h.AuthService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		respondServiceError(c, err, "修改密码失败")
		return
	}
	response.Success(c, gin.H{"changed": true})
}

// recordLoginResult 异步落库登录日志，失败仅记录告警
func (h *Handler) recordLoginResult(c *gin.Context, userID uint, username, failReason string) {
	if h.QueueClient == nil {
		return
	}
	status := constants.LoginLogStatusSuccess
	if failReason != "" {
		status = constants.LoginLogStatusFailed
	}
	payload := queue.LoginLogPayload{
		UserID:     userID,
		Username:   username,
		Status:     status,
		FailReason: failReason,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if err := h.QueueClient.EnqueueLoginLog(payload); err != nil {
		requestLog(c).Warnw("login_log_enqueue_failed", "username", username, "error", err)
	}
}
