package admin

import (
	"strings"

	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/models"

	"github.com/gin-gonic/gin"
)

// GetApis 获取接口目录
func (h *Handler) GetApis(c *gin.Context) {
	apis, err := h.ApiRepo.ListAll()
	if err != nil {
		respondError(c, response.CodeInternal, "获取接口目录失败", err)
		return
	}
	response.Success(c, apis)
}

// ApiRequest 创建/更新接口请求
type ApiRequest struct {
	Path    string `json:"path" binding:"required,max=128"`
	Method  string `json:"method" binding:"required,max=16"`
	Summary string `json:"summary"`
	Tags    string `json:"tags"`
}

// CreateApi 创建接口记录
func (h *Handler) CreateApi(c *gin.Context) {
	var req ApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	path := strings.TrimSpace(req.Path)
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	existing, err := h.ApiRepo.GetByPathMethod(path, method)
	if err != nil {
		respondError(c, response.CodeInternal, "查询接口失败", err)
		return
	}
	if existing != nil {
		respondError(c, response.CodeConflict, "接口已存在", nil)
		return
	}

	api := &models.Api{
		Path:    path,
		Method:  method,
		Summary: strings.TrimSpace(req.Summary),
		Tags:    strings.TrimSpace(req.Tags),
	}
	if err := h.ApiRepo.Create(api); err != nil {
		respondError(c, response.CodeInternal, "创建接口失败", err)
		return
	}
	response.Success(c, api)
}

// UpdateApi 更新接口记录
func (h *Handler) UpdateApi(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req ApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	api, err := h.ApiRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "查询接口失败", err)
		return
	}
	if api == nil {
		response.NotFound(c, "接口不存在")
		return
	}

	api.Path = strings.TrimSpace(req.Path)
	api.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	api.Summary = strings.TrimSpace(req.Summary)
	api.Tags = strings.TrimSpace(req.Tags)
	if err := h.ApiRepo.Update(api); err != nil {
		respondError(c, response.CodeInternal, "更新接口失败", err)
		return
	}
	response.Success(c, api)
}

// DeleteApi 删除接口记录
func (h *Handler) DeleteApi(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	api, err := h.ApiRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "查询接口失败", err)
		return
	}
	if api == nil {
		response.NotFound(c, "接口不存在")
		return
	}
	if err := h.ApiRepo.Delete(api); err != nil {
		respondError(c, response.CodeInternal, "删除接口失败", err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
