package handler

import (
	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/pkg/response"
)

// AssignmentHandler 计划分配 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.PlanAssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.PlanAssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// ── 教练侧 ──

// AssignPlan 把计划分配给多个用户
// POST /api/v1/coach/plans/:id/assign
func (h *AssignmentHandler) AssignPlan(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.assignmentSvc.AssignPlanToUsers(c.Request.Context(), coachID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// GetPlanUsers 计划下每个用户的最新分配状态
// GET /api/v1/coach/plans/:id/users
func (h *AssignmentHandler) GetPlanUsers(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.GetPlanUsersStatus(c.Request.Context(), coachID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// GetRoster 教练名下用户概览；管理员可查看任意教练
// GET /api/v1/coaches/:id/roster
func (h *AssignmentHandler) GetRoster(c *gin.Context) {
	viewer, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.GetCoachRoster(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// ── 用户侧 ──

// ListPending 待处理的分配
// GET /api/v1/assignments/pending
func (h *AssignmentHandler) ListPending(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.GetUserPendingAssignments(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// Activate 接受分配
// POST /api/v1/assignments/:id/activate
func (h *AssignmentHandler) Activate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.Activate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// Decline 拒绝分配
// POST /api/v1/assignments/:id/decline
func (h *AssignmentHandler) Decline(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.Decline(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}
