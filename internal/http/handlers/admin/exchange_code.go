package admin

import (
	"strings"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/repository"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

// requireRechargeCardPermission 校验兑换码管理权限
func (h *Handler) requireRechargeCardPermission(c *gin.Context, actorID uint) bool {
	allowed, err := h.PermissionService.HasPermission(actorID, constants.PermManageRechargeCards)
	if err != nil {
		respondServiceError(c, err, "权限校验失败")
		return false
	}
	if !allowed {
		response.Forbidden(c, service.ErrPermissionDenied.Error())
		return false
	}
	return true
}

// CreateExchangeCodeRequest 创建兑换码请求
type CreateExchangeCodeRequest struct {
	Points    int64      `json:"points" binding:"required,gt=0"`
	ExpiresAt *time.Time `json:"expires_at"`
	Remark    string     `json:"remark"`
}

// CreateExchangeCode 创建兑换码（非超级管理员同步扣减本人积分）
func (h *Handler) CreateExchangeCode(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	if !h.requireRechargeCardPermission(c, actorID) {
		return
	}

	var req CreateExchangeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	code, err := h.PointsService.CreateExchangeCode(service.ExchangeCodeCreateInput{
		CreatorID: actorID,
		Points:    req.Points,
		ExpiresAt: req.ExpiresAt,
		Remark:    req.Remark,
	})
	if err != nil {
		respondServiceError(c, err, "创建兑换码失败")
		return
	}
	response.Success(c, code)
}

// GetExchangeCodes 获取兑换码列表（非超级管理员仅见本人创建的）
func (h *Handler) GetExchangeCodes(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	if !h.requireRechargeCardPermission(c, actorID) {
		return
	}

	page, pageSize := queryPagination(c)
	filter := repository.ExchangeCodeListFilter{
		Page:        page,
		PageSize:    pageSize,
		Code:        strings.TrimSpace(c.Query("code")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
	}
	if !isSuperuser(c) {
		filter.CreatorID = actorID
	}

	codes, total, err := h.PointsService.ListExchangeCodes(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取兑换码列表失败", err)
		return
	}
	response.SuccessWithPage(c, codes, buildPagination(page, pageSize, total))
}
