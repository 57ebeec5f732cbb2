package handler

import (
	"controltower/internal/service"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 合同相关接口
// ============================================================

// ListContracts 合同列表
// GET /api/v1/billing/contracts?teamId=xxx&page=1&limit=20
func (h *Handler) ListContracts(c *gin.Context) {
	teamID := c.Query("teamId")
	if teamID == "" {
		response.Fail(c, 400, "teamId query parameter is required")
		return
	}
	page, limit := response.ParsePagination(c)
	contracts, total, err := h.billingService.ListContracts(c.Request.Context(), teamID, page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, contracts, page, limit, total)
}

// CreateContract 新建合同
// POST /api/v1/billing/contracts
func (h *Handler) CreateContract(c *gin.Context) {
	var in service.CreateContractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	contract, err := h.billingService.CreateContract(c.Request.Context(), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, contract)
}

// GetContract 查询合同
// GET /api/v1/billing/contracts/:id
func (h *Handler) GetContract(c *gin.Context) {
	contract, err := h.billingService.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, contract)
}

// UpdateContract 修改合同
// PATCH /api/v1/billing/contracts/:id
func (h *Handler) UpdateContract(c *gin.Context) {
	var in service.UpdateContractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	contract, err := h.billingService.UpdateContract(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, contract)
}

// DeleteContract 删除合同
// DELETE /api/v1/billing/contracts/:id
func (h *Handler) DeleteContract(c *gin.Context) {
	if err := h.billingService.DeleteContract(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "contract deleted", nil)
}

// ============================================================
// 订阅与支付方式
// ============================================================

// ListSubscriptions 订阅列表（由支付回调维护，只读）
// GET /api/v1/billing/subscriptions?teamId=xxx
func (h *Handler) ListSubscriptions(c *gin.Context) {
	teamID := c.Query("teamId")
	if teamID == "" {
		response.Fail(c, 400, "teamId query parameter is required")
		return
	}
	page, limit := response.ParsePagination(c)
	subs, total, err := h.billingService.ListSubscriptions(c.Request.Context(), teamID, page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, subs, page, limit, total)
}

// AttachPaymentMethodRequest 绑卡请求
type AttachPaymentMethodRequest struct {
	Token string `json:"token" binding:"required"` // 渠道侧换发的卡 token
}

// AttachPaymentMethod 绑定支付方式
// POST /api/v1/teams/:id/payment-methods
func (h *Handler) AttachPaymentMethod(c *gin.Context) {
	var req AttachPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	method, err := h.billingService.AttachPaymentMethod(c.Request.Context(), c.Param("id"), req.Token)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, method)
}

// ListPaymentMethods 支付方式列表
// GET /api/v1/teams/:id/payment-methods
func (h *Handler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.billingService.ListPaymentMethods(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, methods)
}
