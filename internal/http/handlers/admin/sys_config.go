package admin

import (
	"strings"

	"github.com/agent-console/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetSysConfigs 获取全部系统配置
func (h *Handler) GetSysConfigs(c *gin.Context) {
	items, err := h.SysConfigService.ListAll()
	if err != nil {
		respondError(c, response.CodeInternal, "获取系统配置失败", err)
		return
	}
	response.Success(c, items)
}

// GetSysConfig 获取单个配置项
func (h *Handler) GetSysConfig(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		respondError(c, response.CodeBadRequest, "配置键不能为空", nil)
		return
	}

	item, err := h.SysConfigService.Get(key)
	if err != nil {
		respondServiceError(c, err, "获取配置失败")
		return
	}
	response.Success(c, item)
}

// SetSysConfigRequest 写入配置请求
type SetSysConfigRequest struct {
	Key   string `json:"key" binding:"required,max=64"`
	Value string `json:"value"`
	Desc  string `json:"desc"`
}

// SetSysConfig 写入配置（存在则覆盖）
func (h *Handler) SetSysConfig(c *gin.Context) {
	var req SetSysConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	if err := h.SysConfigService.Set(req.Key, req.Value, req.Desc); err != nil {
		respondServiceError(c, err, "写入配置失败")
		return
	}
	response.Success(c, gin.H{"updated": true})
}
