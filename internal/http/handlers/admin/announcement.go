package admin

import (
	"strings"
	"time"

	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/repository"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAnnouncements 获取公告列表
func (h *Handler) GetAnnouncements(c *gin.Context) {
	page, pageSize := queryPagination(c)
	filter := repository.AnnouncementListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Status:   strings.TrimSpace(c.Query("status")),
	}

	items, total, err := h.AnnouncementService.ListAnnouncements(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取公告列表失败", err)
		return
	}
	response.SuccessWithPage(c, items, buildPagination(page, pageSize, total))
}

// GetAnnouncement 获取公告详情
func (h *Handler) GetAnnouncement(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	item, err := h.AnnouncementService.GetAnnouncement(id)
	if err != nil {
		respondServiceError(c, err, "获取公告失败")
		return
	}
	response.Success(c, item)
}

// AnnouncementRequest 创建/更新公告请求
type AnnouncementRequest struct {
	Title     string     `json:"title" binding:"required,max=255"`
	Content   string     `json:"content" binding:"required"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreateAnnouncement 创建公告
func (h *Handler) CreateAnnouncement(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	item, err := h.AnnouncementService.CreateAnnouncement(actorID, service.AnnouncementInput{
		Title:     req.Title,
		Content:   req.Content,
		Status:    req.Status,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondServiceError(c, err, "创建公告失败")
		return
	}
	response.Success(c, item)
}

// UpdateAnnouncement 更新公告
func (h *Handler) UpdateAnnouncement(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	item, err := h.AnnouncementService.UpdateAnnouncement(id, service.AnnouncementInput{
		Title:     req.Title,
		Content:   req.Content,
		Status:    req.Status,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondServiceError(c, err, "更新公告失败")
		return
	}
	response.Success(c, item)
}

// DeleteAnnouncement 删除公告
func (h *Handler) DeleteAnnouncement(c *gin.Context) {
	id, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := h.AnnouncementService.DeleteAnnouncement(id); err != nil {
		respondServiceError(c, err, "删除公告失败")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
