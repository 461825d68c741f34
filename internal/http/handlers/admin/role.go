package admin

import (
	"strings"

	"github.com/agent-console/internal/authz"
	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/repository"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRoles 获取角色列表
func (h *Handler) GetRoles(c *gin.Context) {
	page, pageSize := queryPagination(c)
	filter := repository.RoleListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
	}
	if raw := strings.TrimSpace(c.Query("is_agent_role")); raw != "" {
		isAgent := raw == "true" || raw == "1"
		filter.IsAgentRole = &isAgent
	}

	roles, total, err := h.RoleService.ListRoles(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取角色列表失败", err)
		return
	}
	response.SuccessWithPage(c, roles, buildPagination(page, pageSize, total))
}

// GetRole 获取角色详情
func (h *Handler) GetRole(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	role, err := h.RoleService.GetRole(roleID)
	if err != nil {
		respondServiceError(c, err, "获取角色失败")
		return
	}
	userCount, err := h.RoleService.UserCount(roleID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取角色用户数失败", err)
		return
	}
	response.Success(c, gin.H{
		"role":       role,
		"user_count": userCount,
	})
}

// GetCreatableRoles 获取当前操作者可创建并分配的角色
func (h *Handler) GetCreatableRoles(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	roles, err := h.RoleService.CreatableRoles(actorID)
	if err != nil {
		respondServiceError(c, err, "获取可分配角色失败")
		return
	}
	response.Success(c, roles)
}

// GetAgentPermissionCatalog 获取代理权限标签全集
func (h *Handler) GetAgentPermissionCatalog(c *gin.Context) {
	response.Success(c, constants.AgentPermissionTags)
}

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Name             string   `json:"name" binding:"required,max=64"`
	Desc             string   `json:"desc"`
	IsAgentRole      bool     `json:"is_agent_role"`
	UserLevel        int      `json:"user_level"`
	AgentPermissions []string `json:"agent_permissions"`
}

// CreateRole 创建角色
func (h *Handler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	role, err := h.RoleService.CreateRole(service.RoleCreateInput{
		Name:             req.Name,
		Desc:             req.Desc,
		IsAgentRole:      req.IsAgentRole,
		UserLevel:        req.UserLevel,
		AgentPermissions: req.AgentPermissions,
	})
	if err != nil {
		respondServiceError(c, err, "创建角色失败")
		return
	}
	response.Success(c, role)
}

// UpdateRoleRequest 更新角色请求，未出现的字段不修改
type UpdateRoleRequest struct {
	Name      *string `json:"name"`
	Desc      *string `json:"desc"`
	UserLevel *int    `json:"user_level"`
}

// UpdateRole 更新角色
func (h *Handler) UpdateRole(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	role, err := h.RoleService.UpdateRole(roleID, service.RoleUpdateInput{
		Name:      req.Name,
		Desc:      req.Desc,
		UserLevel: req.UserLevel,
	})
	if err != nil {
		respondServiceError(c, err, "更新角色失败")
		return
	}
	response.Success(c, role)
}

// DeleteRole 删除角色（force=true 时解绑后强制删除）
func (h *Handler) DeleteRole(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"

	result, err := h.RoleService.DeleteRole(actorID, roleID, force)
	if err != nil {
		respondServiceError(c, err, "删除角色失败")
		return
	}
	if result.Deleted && h.AuthzService != nil {
		if err := h.AuthzService.RemoveRole(roleID); err != nil {
			requestLog(c).Warnw("authz_remove_role_failed", "role_id", roleID, "error", err)
		}
	}
	response.Success(c, result)
}

// GetRoleAgentPermissions 获取角色的代理权限标签
func (h *Handler) GetRoleAgentPermissions(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	tags, err := h.RoleService.GetAgentPermissions(roleID)
	if err != nil {
		respondServiceError(c, err, "获取代理权限失败")
		return
	}
	response.Success(c, tags)
}

// UpdateRoleAgentPermissionsRequest 更新代理权限请求
type UpdateRoleAgentPermissionsRequest struct {
	AgentPermissions []string `json:"agent_permissions"`
}

// UpdateRoleAgentPermissions 覆盖更新角色的代理权限标签
func (h *Handler) UpdateRoleAgentPermissions(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req UpdateRoleAgentPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	role, err := h.RoleService.UpdateAgentPermissions(roleID, req.AgentPermissions)
	if err != nil {
		respondServiceError(c, err, "更新代理权限失败")
		return
	}
	response.Success(c, role)
}

// GetRoleApis 获取角色绑定的接口列表
func (h *Handler) GetRoleApis(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	apis, err := h.RoleRepo.ListApisByRoleID(roleID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取角色接口失败", err)
		return
	}
	response.Success(c, apis)
}

// UpdateRoleApisRequest 更新角色接口绑定请求
type UpdateRoleApisRequest struct {
	ApiIDs []uint `json:"api_ids"`
}

// UpdateRoleApis 覆盖更新角色的接口绑定，并同步授权策略
func (h *Handler) UpdateRoleApis(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req UpdateRoleApisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	role, err := h.RoleService.GetRole(roleID)
	if err != nil {
		respondServiceError(c, err, "获取角色失败")
		return
	}
	if err := h.RoleRepo.ReplaceApis(role.ID, req.ApiIDs); err != nil {
		respondError(c, response.CodeInternal, "更新角色接口失败", err)
		return
	}

	if h.AuthzService != nil {
		apis, err := h.RoleRepo.ListApisByRoleID(roleID)
		if err != nil {
			respondError(c, response.CodeInternal, "同步授权策略失败", err)
			return
		}
		policies := make([]authz.Policy, 0, len(apis))
		for _, api := range apis {
			policies = append(policies, authz.Policy{Object: api.Path, Action: api.Method})
		}
		if err := h.AuthzService.SyncRolePolicies(roleID, policies); err != nil {
			respondError(c, response.CodeInternal, "同步授权策略失败", err)
			return
		}
	}
	response.Success(c, gin.H{"updated": true})
}

// GetRoleMenus 获取角色绑定的菜单列表
func (h *Handler) GetRoleMenus(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	menus, err := h.RoleRepo.ListMenusByRoleID(roleID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取角色菜单失败", err)
		return
	}
	response.Success(c, menus)
}

// UpdateRoleMenusRequest 更新角色菜单绑定请求
type UpdateRoleMenusRequest struct {
	MenuIDs []uint `json:"menu_ids"`
}

// UpdateRoleMenus 覆盖更新角色的菜单绑定
func (h *Handler) UpdateRoleMenus(c *gin.Context) {
	roleID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req UpdateRoleMenusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	role, err := h.RoleService.GetRole(roleID)
	if err != nil {
		respondServiceError(c, err, "获取角色失败")
		return
	}
	if err := h.RoleRepo.ReplaceMenus(role.ID, req.MenuIDs); err != nil {
		respondError(c, response.CodeInternal, "更新角色菜单失败", err)
		return
	}
	response.Success(c, gin.H{"updated": true})
}
