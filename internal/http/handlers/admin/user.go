package admin

import (
	"strconv"
	"strings"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/repository"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

func paramUint(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		respondError(c, response.CodeBadRequest, "路径参数无效", err)
		return 0, false
	}
	return uint(value), true
}

// GetUsers 获取用户列表（按操作者身份裁剪可见范围）
func (h *Handler) GetUsers(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	page, pageSize := queryPagination(c)
	filter := repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		active := raw == "true" || raw == "1"
		filter.IsActive = &active
	}

	users, total, err := h.AgentService.ListVisibleUsers(actorID, filter)
	if err != nil {
		respondServiceError(c, err, "获取用户列表失败")
		return
	}
	response.SuccessWithPage(c, users, buildPagination(page, pageSize, total))
}

// GetUser 获取用户详情
func (h *Handler) GetUser(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if targetID != actorID {
		allowed, err := h.AgentService.CanManageAccount(actorID, targetID, constants.PermViewSubordinateUsers)
		if err != nil {
			respondServiceError(c, err, "权限校验失败")
			return
		}
		if !allowed {
			response.Forbidden(c, service.ErrPermissionDenied.Error())
			return
		}
	}

	user, err := h.AgentService.GetUser(targetID)
	if err != nil {
		respondServiceError(c, err, "获取用户失败")
		return
	}
	roles, err := h.AgentService.GetUserRoles(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户角色失败", err)
		return
	}
	response.Success(c, gin.H{
		"user":  user,
		"roles": roles,
	})
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username       string `json:"username" binding:"required,min=3,max=64"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Alias          string `json:"alias"`
	Phone          string `json:"phone"`
	RoleIDs        []uint `json:"role_ids"`
	InvitationCode string `json:"invitation_code"`
	IsActive       *bool  `json:"is_active"`
}

// CreateUser 创建用户
func (h *Handler) CreateUser(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	user, err := h.AgentService.CreateAccount(actorID, service.AccountCreateInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		Alias:          req.Alias,
		Phone:          req.Phone,
		RoleIDs:        req.RoleIDs,
		InvitationCode: req.InvitationCode,
		IsActive:       req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err, "创建用户失败")
		return
	}
	h.syncAuthzUserRoles(c, user.ID, req.RoleIDs)
	response.Success(c, user)
}

// UpdateUserRequest 更新用户请求，未出现的字段不修改
type UpdateUserRequest struct {
	Alias    *string `json:"alias"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
	RoleIDs  []uint  `json:"role_ids"`
}

// UpdateUser 更新用户
func (h *Handler) UpdateUser(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	user, err := h.AgentService.UpdateAccount(actorID, targetID, service.AccountUpdateInput{
		Alias:    req.Alias,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: req.IsActive,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		respondServiceError(c, err, "更新用户失败")
		return
	}
	if len(req.RoleIDs) > 0 {
		h.syncAuthzUserRoles(c, targetID, req.RoleIDs)
	}
	response.Success(c, user)
}

// DeleteUser 删除用户
func (h *Handler) DeleteUser(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.AgentService.DeleteAccount(actorID, targetID); err != nil {
		respondServiceError(c, err, "删除用户失败")
		return
	}
	if h.AuthzService != nil {
		if err := h.AuthzService.RemoveUser(targetID); err != nil {
			requestLog(c).Warnw("authz_remove_user_failed", "user_id", targetID, "error", err)
		}
	}
	response.Success(c, gin.H{"deleted": true})
}

// ResetUserPassword 重置用户密码并返回新密码
func (h *Handler) ResetUserPassword(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	newPassword, err := h.AgentService.ResetPassword(actorID, targetID)
	if err != nil {
		respondServiceError(c, err, "重置密码失败")
		return
	}
	response.Success(c, gin.H{"new_password": newPassword})
}

// GetSubordinates 获取直属下级列表
func (h *Handler) GetSubordinates(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	children, err := h.HierarchyService.DirectChildren(actorID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取下级列表失败", err)
		return
	}
	response.Success(c, children)
}

// GetInvitationInfo 获取本人邀请信息
func (h *Handler) GetInvitationInfo(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	info, err := h.AgentService.GetInvitationInfo(actorID)
	if err != nil {
		respondServiceError(c, err, "获取邀请信息失败")
		return
	}
	response.Success(c, info)
}

// syncAuthzUserRoles 角色绑定变化后同步授权策略，失败仅记录告警
func (h *Handler) syncAuthzUserRoles(c *gin.Context, userID uint, roleIDs []uint) {
	if h.AuthzService == nil {
		return
	}
	if err := h.AuthzService.SetUserRoles(userID, roleIDs); err != nil {
		requestLog(c).Warnw("authz_sync_user_roles_failed", "user_id", userID, "error", err)
	}
}
