package handler

import (
	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/pkg/response"
)

// WorkoutHandler 动作库 HTTP 处理器
type WorkoutHandler struct {
	workoutSvc service.WorkoutService
}

// NewWorkoutHandler 创建 WorkoutHandler
func NewWorkoutHandler(workoutSvc service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutSvc: workoutSvc}
}

// ListWorkouts 动作列表
// GET /api/v1/workouts
func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	var req dto.WorkoutListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	workouts, total, err := h.workoutSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, workouts, total, req.GetPage(), req.GetPageSize())
}

// GetWorkout 动作详情
// GET /api/v1/workouts/:id
func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	workout, err := h.workoutSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, workout)
}

// ListAlternatives 共享肌群的替代动作
// GET /api/v1/workouts/:id/alternatives
func (h *WorkoutHandler) ListAlternatives(c *gin.Context) {
	var req dto.AlternativesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	workouts, err := h.workoutSvc.ListAlternatives(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, workouts)
}

// CreateWorkout 创建动作
// POST /api/v1/workouts
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	workout, err := h.workoutSvc.Create(c.Request.Context(), actorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, workout)
}

// UpdateWorkout 部分更新动作
// PUT /api/v1/workouts/:id
func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	workout, err := h.workoutSvc.Update(c.Request.Context(), actorID, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, workout)
}

// ArchiveWorkout 归档动作
// POST /api/v1/workouts/:id/archive
func (h *WorkoutHandler) ArchiveWorkout(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.workoutSvc.Archive(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// UnarchiveWorkout 恢复动作
// POST /api/v1/workouts/:id/unarchive
func (h *WorkoutHandler) UnarchiveWorkout(c *gin.Context) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	workout, err := h.workoutSvc.Unarchive(c.Request.Context(), actorID, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, workout)
}

// ListMuscleGroups 肌群字典
// GET /api/v1/muscle-groups
func (h *WorkoutHandler) ListMuscleGroups(c *gin.Context) {
	groups, err := h.workoutSvc.ListMuscleGroups(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, groups)
}

// CreateMuscleGroup 新增自定义肌群
// POST /api/v1/muscle-groups
func (h *WorkoutHandler) CreateMuscleGroup(c *gin.Context) {
	var req dto.CreateMuscleGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	group, err := h.workoutSvc.CreateMuscleGroup(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, group)
}

// ListCardioTypes 有氧类型字典
// GET /api/v1/cardio-types
func (h *WorkoutHandler) ListCardioTypes(c *gin.Context) {
	types, err := h.workoutSvc.ListCardioTypes(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, types)
}
