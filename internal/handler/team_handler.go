package handler

import (
	"controltower/internal/model"
	"controltower/internal/service"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 团队相关接口
// ============================================================

// ListTeams 团队列表
// GET /api/v1/teams?page=1&limit=20
func (h *Handler) ListTeams(c *gin.Context) {
	page, limit := response.ParsePagination(c)
	teams, total, err := h.teamService.List(c.Request.Context(), page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, teams, page, limit, total)
}

// CreateTeam 创建团队
// POST /api/v1/teams
func (h *Handler) CreateTeam(c *gin.Context) {
	var in service.CreateTeamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	team, err := h.teamService.Create(c.Request.Context(), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, team)
}

// GetTeam 查询团队
// GET /api/v1/teams/:id
func (h *Handler) GetTeam(c *gin.Context) {
	team, err := h.teamService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, team)
}

// UpdateTeam 修改团队
// PATCH /api/v1/teams/:id
func (h *Handler) UpdateTeam(c *gin.Context) {
	var in service.UpdateTeamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	team, err := h.teamService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, team)
}

// DeleteTeam 删除团队
// DELETE /api/v1/teams/:id
func (h *Handler) DeleteTeam(c *gin.Context) {
	if err := h.teamService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "team deleted", nil)
}

// ListTeamMembers 成员列表
// GET /api/v1/teams/:id/members
func (h *Handler) ListTeamMembers(c *gin.Context) {
	members, err := h.teamService.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, members)
}

// AddMemberRequest 加成员请求
type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// AddTeamMember 管理端直接加成员
// POST /api/v1/teams/:id/members
func (h *Handler) AddTeamMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	member, err := h.teamService.AddMember(c.Request.Context(), c.Param("id"), req.UserID, req.Role)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, member)
}

// ============================================================
// 白标配置
// ============================================================

// GetWhiteLabel 查询团队白标配置
// GET /api/v1/teams/:id/white-label
func (h *Handler) GetWhiteLabel(c *gin.Context) {
	cfg, err := h.teamService.GetWhiteLabel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, cfg)
}

// PutWhiteLabel 覆盖团队白标配置
// PUT /api/v1/teams/:id/white-label
func (h *Handler) PutWhiteLabel(c *gin.Context) {
	var cfg model.WhiteLabelConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	saved, err := h.teamService.PutWhiteLabel(c.Request.Context(), c.Param("id"), &cfg)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, saved)
}
