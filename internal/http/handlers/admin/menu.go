package admin

import (
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMenus 获取菜单平铺列表
func (h *Handler) GetMenus(c *gin.Context) {
	menus, err := h.MenuService.ListMenus()
	if err != nil {
		respondError(c, response.CodeInternal, "获取菜单列表失败", err)
		return
	}
	response.Success(c, menus)
}

// GetMenuTree 获取完整菜单树
func (h *Handler) GetMenuTree(c *gin.Context) {
	tree, err := h.MenuService.MenuTree()
	if err != nil {
		respondError(c, response.CodeInternal, "获取菜单树失败", err)
		return
	}
	response.Success(c, tree)
}

// MenuRequest 创建/更新菜单请求
type MenuRequest struct {
	Name      string      `json:"name" binding:"required,max=64"`
	Path      string      `json:"path"`
	Component string      `json:"component"`
	Icon      string      `json:"icon"`
	ParentID  uint        `json:"parent_id"`
	SortOrder int         `json:"sort_order"`
	IsHidden  bool        `json:"is_hidden"`
	Meta      models.JSON `json:"meta"`
}

func (r MenuRequest) toInput() service.MenuInput {
	return service.MenuInput{
		Name:      r.Name,
		Path:      r.Path,
		Component: r.Component,
		Icon:      r.Icon,
		ParentID:  r.ParentID,
		SortOrder: r.SortOrder,
		IsHidden:  r.IsHidden,
		Meta:      r.Meta,
	}
}

// CreateMenu 创建菜单
func (h *Handler) CreateMenu(c *gin.Context) {
	var req MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	menu, err := h.MenuService.CreateMenu(req.toInput())
	if err != nil {
		respondServiceError(c, err, "创建菜单失败")
		return
	}
	response.Success(c, menu)
}

// UpdateMenu 更新菜单
func (h *Handler) UpdateMenu(c *gin.Context) {
	menuID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	menu, err := h.MenuService.UpdateMenu(menuID, req.toInput())
	if err != nil {
		respondServiceError(c, err, "更新菜单失败")
		return
	}
	response.Success(c, menu)
}

// DeleteMenu 删除菜单
func (h *Handler) DeleteMenu(c *gin.Context) {
	menuID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.MenuService.DeleteMenu(menuID); err != nil {
		respondServiceError(c, err, "删除菜单失败")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
