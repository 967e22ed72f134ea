package handler

import (
	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/pkg/response"
)

// PlanHandler 训练计划 HTTP 处理器（教练）
type PlanHandler struct {
	planSvc service.PlanService
}

// NewPlanHandler 创建 PlanHandler
func NewPlanHandler(planSvc service.PlanService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc}
}

// ListPlans 当前教练的计划列表
// GET /api/v1/coach/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plans, total, err := h.planSvc.List(c.Request.Context(), coachID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, plans, total, req.GetPage(), req.GetPageSize())
}

// GetPlan 计划详情
// GET /api/v1/coach/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Get(c.Request.Context(), coachID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, plan)
}

// CreatePlan 创建计划
// POST /api/v1/coach/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.Create(c.Request.Context(), coachID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, plan)
}

// UpdatePlan 部分更新计划，提供 days 时整体替换
// PATCH /api/v1/coach/plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.Update(c.Request.Context(), coachID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, plan)
}

// ArchivePlan 归档计划
// POST /api/v1/coach/plans/:id/archive
func (h *PlanHandler) ArchivePlan(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Archive(c.Request.Context(), coachID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, plan)
}

// UnarchivePlan 取消归档
// POST /api/v1/coach/plans/:id/unarchive
func (h *PlanHandler) UnarchivePlan(c *gin.Context) {
	coachID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Unarchive(c.Request.Context(), coachID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, plan)
}
