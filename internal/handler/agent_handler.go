package handler

import (
	"controltower/internal/service"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListAgents Agent 列表（团队维度）
// GET /api/v1/agents?teamId=xxx&page=1&limit=20
func (h *Handler) ListAgents(c *gin.Context) {
	teamID := c.Query("teamId")
	if teamID == "" {
		response.Fail(c, 400, "teamId query parameter is required")
		return
	}
	page, limit := response.ParsePagination(c)
	agents, total, err := h.agentService.List(c.Request.Context(), teamID, page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, agents, page, limit, total)
}

// CreateAgent 创建 Agent
// POST /api/v1/agents
func (h *Handler) CreateAgent(c *gin.Context) {
	var in service.CreateAgentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	agent, err := h.agentService.Create(c.Request.Context(), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, agent)
}

// GetAgent 查询 Agent
// GET /api/v1/agents/:id
func (h *Handler) GetAgent(c *gin.Context) {
	agent, err := h.agentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, agent)
}

// UpdateAgent 修改 Agent
// PATCH /api/v1/agents/:id
func (h *Handler) UpdateAgent(c *gin.Context) {
	var in service.UpdateAgentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	agent, err := h.agentService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, agent)
}

// DeleteAgent 删除 Agent
// DELETE /api/v1/agents/:id
func (h *Handler) DeleteAgent(c *gin.Context) {
	if err := h.agentService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessMessage(c, "agent deleted", nil)
}
