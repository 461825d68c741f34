package admin

import (
	"strings"
	"time"

	"github.com/agent-console/internal/constants"
	"github.com/agent-console/internal/http/response"
	"github.com/agent-console/internal/models"
	"github.com/agent-console/internal/repository"
	"github.com/agent-console/internal/service"

	"github.com/gin-gonic/gin"
)

// GetPointsInfo 获取本人积分概览
func (h *Handler) GetPointsInfo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	info, err := h.PointsService.GetInfo(userID)
	if err != nil {
		respondServiceError(c, err, "获取积分信息失败")
		return
	}
	response.Success(c, info)
}

// RechargeRequest 积分充值请求
type RechargeRequest struct {
	Amount models.Money `json:"amount" binding:"required"`
	Method string       `json:"method" binding:"required"`
	Remark string       `json:"remark"`
}

// Recharge 积分充值（模拟支付，金额按 1:1 折算积分）
func (h *Handler) Recharge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	record, err := h.PointsService.Recharge(service.PointsRechargeInput{
		UserID: userID,
		Amount: req.Amount,
		Method: req.Method,
		Remark: req.Remark,
	})
	if err != nil {
		respondServiceError(c, err, "积分充值失败")
		return
	}
	response.Success(c, record)
}

// ConsumeRequest 积分扣减请求
type ConsumeRequest struct {
	UserID    uint   `json:"user_id"`
	Points    int64  `json:"points" binding:"required,gt=0"`
	UsageType string `json:"usage_type"`
	RelatedID string `json:"related_id"`
	Remark    string `json:"remark"`
}

// Consume 积分扣减。扣减他人账户需要积分管理权限。
func (h *Handler) Consume(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	targetID := req.UserID
	usageType := strings.TrimSpace(req.UsageType)
	if targetID == 0 {
		targetID = actorID
	}
	if targetID != actorID {
		allowed, err := h.AgentService.CanManageAccount(actorID, targetID, constants.PermManagePoints)
		if err != nil {
			respondServiceError(c, err, "权限校验失败")
			return
		}
		if !allowed {
			response.Forbidden(c, service.ErrPermissionDenied.Error())
			return
		}
		if usageType == "" {
			usageType = constants.UsageTypeAdminDeduction
		}
	}
	if usageType == "" {
		usageType = constants.UsageTypeServiceConsumption
	}

	record, err := h.PointsService.Consume(service.PointsConsumeInput{
		UserID:    targetID,
		Points:    req.Points,
		UsageType: usageType,
		RelatedID: req.RelatedID,
		Remark:    req.Remark,
	})
	if err != nil {
		respondServiceError(c, err, "积分扣减失败")
		return
	}
	response.Success(c, record)
}

// TransferRequest 积分转赠请求
type TransferRequest struct {
	ToUserID uint   `json:"to_user_id" binding:"required"`
	Points   int64  `json:"points" binding:"required,gt=0"`
	Remark   string `json:"remark"`
}

// Transfer 积分转赠
func (h *Handler) Transfer(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	result, err := h.PointsService.Transfer(service.PointsTransferInput{
		FromUserID: actorID,
		ToUserID:   req.ToUserID,
		Points:     req.Points,
		Remark:     req.Remark,
	})
	if err != nil {
		respondServiceError(c, err, "积分转赠失败")
		return
	}
	response.Success(c, result)
}

// RedeemRequest 兑换码兑换请求
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// RedeemExchangeCode 兑换码兑换积分
func (h *Handler) RedeemExchangeCode(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数有误", err)
		return
	}

	record, err := h.PointsService.RedeemExchangeCode(userID, req.Code)
	if err != nil {
		respondServiceError(c, err, "兑换失败")
		return
	}
	response.Success(c, record)
}

func parseTimeQuery(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// scopePointsFilter 按操作者权限裁剪账目可见范围：
// 持全局账目权限的不裁剪，其余只能看本人与直属下级。
func (h *Handler) scopePointsFilter(c *gin.Context, actorID uint) ([]uint, bool, bool) {
	global, err := h.PermissionService.HasPermission(actorID, constants.PermViewGlobalPointsUsage)
	if err != nil {
		respondServiceError(c, err, "权限校验失败")
		return nil, false, false
	}
	if global {
		return nil, true, true
	}
	children, err := h.HierarchyService.DirectChildren(actorID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取下级列表失败", err)
		return nil, false, false
	}
	ids := make([]uint, 0, len(children)+1)
	ids = append(ids, actorID)
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	return ids, false, true
}

// GetRechargeRecords 获取充值记录列表
func (h *Handler) GetRechargeRecords(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := queryPagination(c)
	filter := repository.RechargeRecordListFilter{
		Page:        page,
		PageSize:    pageSize,
		Method:      strings.TrimSpace(c.Query("method")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
	}

	visibleIDs, global, ok := h.scopePointsFilter(c, actorID)
	if !ok {
		return
	}
	if !global {
		filter.UserIDs = visibleIDs
	}

	records, total, err := h.PointsService.ListRechargeRecords(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取充值记录失败", err)
		return
	}
	response.SuccessWithPage(c, records, buildPagination(page, pageSize, total))
}

// GetUsageRecords 获取使用记录列表
func (h *Handler) GetUsageRecords(c *gin.Context) {
	actorID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := queryPagination(c)
	filter := repository.UsageRecordListFilter{
		Page:        page,
		PageSize:    pageSize,
		UsageType:   strings.TrimSpace(c.Query("usage_type")),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
	}

	visibleIDs, global, ok := h.scopePointsFilter(c, actorID)
	if !ok {
		return
	}
	if !global {
		filter.UserIDs = visibleIDs
	}

	records, total, err := h.PointsService.ListUsageRecords(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "获取使用记录失败", err)
		return
	}
	response.SuccessWithPage(c, records, buildPagination(page, pageSize, total))
}
