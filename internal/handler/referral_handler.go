package handler

import (
	"controltower/internal/service"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListReferrals 推荐列表
// GET /api/v1/referrals?teamId=xxx&page=1&limit=20
func (h *Handler) ListReferrals(c *gin.Context) {
	teamID := c.Query("teamId")
	if teamID == "" {
		response.Fail(c, 400, "teamId query parameter is required")
		return
	}
	page, limit := response.ParsePagination(c)
	referrals, total, err := h.referralService.List(c.Request.Context(), teamID, page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, referrals, page, limit, total)
}

// CreateReferral 新建推荐
// POST /api/v1/referrals
func (h *Handler) CreateReferral(c *gin.Context) {
	var in service.CreateReferralInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	referral, err := h.referralService.Create(c.Request.Context(), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, referral)
}

// ConvertReferral 推荐转化，发放奖励积分
// POST /api/v1/referrals/:code/convert
func (h *Handler) ConvertReferral(c *gin.Context) {
	referral, err := h.referralService.Convert(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "referral converted", referral)
}
