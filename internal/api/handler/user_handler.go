package handler

import (
	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/pkg/response"
)

// UserHandler 用户管理 HTTP 处理器（管理员）
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListUsers 用户列表
// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// Overview 管理端总览计数
// GET /api/v1/admin/users/overview
func (h *UserHandler) Overview(c *gin.Context) {
	overview, err := h.userSvc.Overview(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, overview)
}

// GetUser 用户详情
// GET /api/v1/admin/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, user)
}

// CreateUser 创建用户（先在身份提供方建号，再写本地资料）
// POST /api/v1/admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), actorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, user)
}

// UpdateUser 更新姓名 / 邮箱
// PUT /api/v1/admin/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), actorID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateRole 变更角色
// PUT /api/v1/admin/users/:id/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.UpdateRole(c.Request.Context(), actorID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, user)
}

// Deactivate 停用用户
// POST /api/v1/admin/users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Deactivate(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, user)
}

// AssignCoaches 为用户分配教练
// POST /api/v1/admin/users/:id/coaches
func (h *UserHandler) AssignCoaches(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignCoachesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.userSvc.AssignCoaches(c.Request.Context(), actorID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// RemoveCoach 解除教练关系
// DELETE /api/v1/admin/users/:id/coaches/:coach_id
func (h *UserHandler) RemoveCoach(c *gin.Context) {
	if err := h.userSvc.RemoveCoach(c.Request.Context(), c.Param("id"), c.Param("coach_id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}
