package handler

import (
	"controltower/internal/auth"
	"controltower/internal/model"
	"controltower/pkg/money"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 钱包相关接口
// ============================================================

// GetWallet 查询钱包余额
// GET /api/v1/credits/:teamId
func (h *Handler) GetWallet(c *gin.Context) {
	wallet, err := h.walletService.GetWallet(c.Request.Context(), c.Param("teamId"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"teamId":     wallet.TeamID,
		"balance":    wallet.Balance,
		"unit":       wallet.Unit,
		"status":     wallet.Status,
		"autoRefill": wallet.AutoRefill(),
	})
}

// ListWalletTransactions 查询钱包流水
// GET /api/v1/credits/:teamId/transactions?page=1&limit=20
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	page, limit := response.ParsePagination(c)
	entries, total, err := h.walletService.ListTransactions(c.Request.Context(), c.Param("teamId"), page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, entries, page, limit, total)
}

// GrantRequest 发放积分请求
type GrantRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// GrantCredits 管理员发放积分
// POST /api/v1/credits/:teamId/grant
func (h *Handler) GrantCredits(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	amount, err := parseMoney(req.Amount, req.Unit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	wallet, err := h.walletService.Grant(c.Request.Context(), c.Param("teamId"), amount, req.Reason, auth.IdentityFrom(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "credits granted", gin.H{
		"teamId":  wallet.TeamID,
		"balance": wallet.Balance,
	})
}

// PurchaseRequest 购买积分包请求
type PurchaseRequest struct {
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Unit            string `json:"unit"`
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

// PurchaseCredits 购买积分包
// POST /api/v1/credits/:teamId/purchase
func (h *Handler) PurchaseCredits(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	amount, err := parseMoney(req.Amount, req.Unit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	wallet, err := h.walletService.Purchase(c.Request.Context(), c.Param("teamId"), amount, req.PaymentMethodID, auth.IdentityFrom(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "credits purchased", gin.H{
		"teamId":  wallet.TeamID,
		"balance": wallet.Balance,
	})
}

// ReportRunRequest Agent 运行扣费请求
type ReportRunRequest struct {
	TeamID  string `json:"teamId" binding:"required"`
	RunID   string `json:"runId" binding:"required"`
	AgentID string `json:"agentId"`
	Cost    int64  `json:"cost" binding:"required,gt=0"`
	Unit    string `json:"unit"`
}

// ReportRun Agent 运行扣费（内部调用）
// POST /api/v1/credits/report-run
func (h *Handler) ReportRun(c *gin.Context) {
	var req ReportRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	cost, err := parseMoney(req.Cost, req.Unit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	result, err := h.walletService.ReportRun(c.Request.Context(), req.TeamID, cost, req.RunID, req.AgentID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}

// GetAutoRefill 查询自动充值策略
// GET /api/v1/credits/:teamId/auto-refill
func (h *Handler) GetAutoRefill(c *gin.Context) {
	policy, err := h.walletService.GetAutoRefill(c.Request.Context(), c.Param("teamId"), auth.IdentityFrom(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, policy)
}

// ConfigureAutoRefill 配置自动充值策略
// POST /api/v1/credits/:teamId/auto-refill
func (h *Handler) ConfigureAutoRefill(c *gin.Context) {
	var policy model.AutoRefillPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}

	err := h.walletService.ConfigureAutoRefill(c.Request.Context(), c.Param("teamId"), policy, auth.IdentityFrom(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "auto refill policy saved", policy)
}

// parseMoney 金额入参统一解析，unit 缺省为 credits
func parseMoney(amount int64, unit string) (money.Money, error) {
	if unit == "" {
		unit = string(money.UnitCredits)
	}
	return money.New(amount, money.Unit(unit))
}
