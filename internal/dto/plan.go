package dto

// ── 计划模块请求 ──

// PlanDayInput 计划日：day_of_week 0=周一 … 6=周日
type PlanDayInput struct {
	DayOfWeek  int      `json:"day_of_week" binding:"min=0,max=6"`
	WorkoutIDs []string `json:"workout_ids" binding:"dive,uuid"`
}

// CreatePlanRequest 创建计划
type CreatePlanRequest struct {
	Name      string         `json:"name"       binding:"required,max=180"`
	StartDate string         `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string         `json:"end_date"   binding:"required,datetime=2006-01-02"`
	Days      []PlanDayInput `json:"days"       binding:"dive"`
}

// UpdatePlanRequest 更新计划（部分更新；Days 非 nil 时整体替换）
type UpdatePlanRequest struct {
	Name      *string         `json:"name"       binding:"omitempty,max=180"`
	StartDate *string         `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   *string         `json:"end_date"   binding:"omitempty,datetime=2006-01-02"`
	Days      *[]PlanDayInput `json:"days"`
}

// PlanListRequest 计划列表查询
type PlanListRequest struct {
	PaginationRequest
	IsArchived *bool  `form:"is_archived"`
	Search     string `form:"search" binding:"omitempty,max=100"`
}

// ── 计划模块响应 ──

// PlanDayResponse 计划日
type PlanDayResponse struct {
	ID        string                   `json:"id"`
	DayOfWeek int                      `json:"day_of_week"`
	Workouts  []WorkoutSummaryResponse `json:"workouts"`
}

// PlanListItemResponse 计划列表项
type PlanListItemResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CoachID       string  `json:"coach_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	IsArchived    bool    `json:"is_archived"`
	ArchivedAt    *string `json:"archived_at,omitempty"`
	TotalDays     int     `json:"total_days"`
	TotalWorkouts int     `json:"total_workouts"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// PlanDetailResponse 计划详情
type PlanDetailResponse struct {
	PlanListItemResponse
	Days []PlanDayResponse `json:"days"`
}
