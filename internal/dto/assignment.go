package dto

// ── 计划分配请求 ──

// AssignPlanRequest 将计划分配给学员
type AssignPlanRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,uuid"`
}

// ── 计划分配响应 ──

// AssignmentItemResponse 单个学员的分配结果
type AssignmentItemResponse struct {
	AssignmentID string  `json:"assignment_id"`
	UserID       string  `json:"user_id"`
	Status       string  `json:"status"`
	Created      bool    `json:"created"` // false 表示复用已有的 pending/active 分配
	AssignedAt   string  `json:"assigned_at"`
	ActivatedAt  *string `json:"activated_at,omitempty"`
}

// AssignPlanResponse 分配结果（按 user_id 排序）
type AssignPlanResponse struct {
	PlanID      string                   `json:"plan_id"`
	Assignments []AssignmentItemResponse `json:"assignments"`
}

// ActivateAssignmentResponse 激活结果
type ActivateAssignmentResponse struct {
	AssignmentID             string   `json:"assignment_id"`
	Status                   string   `json:"status"`
	ActivatedAt              string   `json:"activated_at"`
	DeactivatedAssignmentIDs []string `json:"deactivated_assignment_ids"`
}

// DeclineAssignmentResponse 拒绝结果
type DeclineAssignmentResponse struct {
	AssignmentID  string `json:"assignment_id"`
	Status        string `json:"status"`
	DeactivatedAt string `json:"deactivated_at"`
}

// ActivePlanSummary 当前生效计划
type ActivePlanSummary struct {
	AssignmentID string  `json:"assignment_id"`
	PlanID       string  `json:"plan_id"`
	PlanName     string  `json:"plan_name"`
	CoachName    string  `json:"coach_name"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	ActivatedAt  *string `json:"activated_at,omitempty"`
}

// PendingAssignmentItem 待处理分配
type PendingAssignmentItem struct {
	AssignmentID   string `json:"assignment_id"`
	PlanID         string `json:"plan_id"`
	PlanName       string `json:"plan_name"`
	CoachID        string `json:"coach_id"`
	CoachName      string `json:"coach_name"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	TotalDays      int    `json:"total_days"`
	TotalWorkouts  int    `json:"total_workouts"`
	AssignedAt     string `json:"assigned_at"`
	PlanIsArchived bool   `json:"plan_is_archived"`
}

// UserPendingAssignmentsResponse 学员的当前计划与待处理分配
type UserPendingAssignmentsResponse struct {
	ActivePlan *ActivePlanSummary      `json:"active_plan"`
	Pending    []PendingAssignmentItem `json:"pending"`
}

// PlanUserStatusResponse 计划下单个学员的最新分配状态
type PlanUserStatusResponse struct {
	UserID                  string  `json:"user_id"`
	UserName                string  `json:"user_name"`
	UserEmail               string  `json:"user_email"`
	Status                  string  `json:"status"`
	AssignedAt              string  `json:"assigned_at"`
	ActivatedAt             *string `json:"activated_at,omitempty"`
	DeactivatedAt           *string `json:"deactivated_at,omitempty"`
	WeeklyCompletionPercent float64 `json:"weekly_completion_percent"`
}

// PlanUsersResponse 计划学员状态
type PlanUsersResponse struct {
	PlanID string                   `json:"plan_id"`
	Users  []PlanUserStatusResponse `json:"users"`
}

// CoachRosterUserResponse 教练名下学员概况
type CoachRosterUserResponse struct {
	UserID                  string  `json:"user_id"`
	UserName                string  `json:"user_name"`
	UserEmail               string  `json:"user_email"`
	ActivePlanID            *string `json:"active_plan_id"`
	ActivePlanName          *string `json:"active_plan_name"`
	ActivePlanStatus        *string `json:"active_plan_status"`
	PendingPlanCount        int64   `json:"pending_plan_count"`
	WeeklyCompletionPercent float64 `json:"weekly_completion_percent"`
}

// CoachRosterResponse 教练学员名单
type CoachRosterResponse struct {
	CoachID string                    `json:"coach_id"`
	Users   []CoachRosterUserResponse `json:"users"`
}
