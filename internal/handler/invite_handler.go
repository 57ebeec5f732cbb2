package handler

import (
	"controltower/internal/auth"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListInvites 团队邀请列表
// GET /api/v1/teams/:id/invites?page=1&limit=20
func (h *Handler) ListInvites(c *gin.Context) {
	page, limit := response.ParsePagination(c)
	invites, total, err := h.inviteService.List(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, invites, page, limit, total)
}

// CreateInviteRequest 发起邀请请求
type CreateInviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// CreateInvite 发起邀请
// POST /api/v1/teams/:id/invites
func (h *Handler) CreateInvite(c *gin.Context) {
	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	invite, err := h.inviteService.Create(c.Request.Context(), c.Param("id"), req.Email, req.Role, auth.IdentityFrom(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, invite)
}

// AcceptInvite 接受邀请（免认证，邀请 ID 即凭证）
// POST /api/v1/invites/:id/accept
func (h *Handler) AcceptInvite(c *gin.Context) {
	member, err := h.inviteService.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "invite accepted", member)
}

// CancelInvite 取消邀请
// DELETE /api/v1/invites/:id
func (h *Handler) CancelInvite(c *gin.Context) {
	if err := h.inviteService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "invite cancelled", nil)
}
