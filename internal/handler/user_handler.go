package handler

import (
	"controltower/internal/service"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListUsers 用户列表
// GET /api/v1/users?page=1&limit=20
func (h *Handler) ListUsers(c *gin.Context) {
	page, limit := response.ParsePagination(c)
	users, total, err := h.userService.List(c.Request.Context(), page, limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Paged(c, users, page, limit, total)
}

// CreateUser 创建用户
// POST /api/v1/users
func (h *Handler) CreateUser(c *gin.Context) {
	var in service.CreateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	user, err := h.userService.Create(c.Request.Context(), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

// GetUser 查询用户
// GET /api/v1/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateUser 修改用户
// PATCH /api/v1/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	var in service.UpdateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, 400, "invalid request: "+err.Error())
		return
	}
	user, err := h.userService.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, user)
}
