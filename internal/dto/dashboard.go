package dto

// TodayWorkoutResponse 今日训练
type TodayWorkoutResponse struct {
	Date           string                   `json:"date"`
	DayOfWeek      int                      `json:"day_of_week"`
	PlanID         *string                  `json:"plan_id"`
	PlanName       *string                  `json:"plan_name"`
	Workouts       []WorkoutSummaryResponse `json:"workouts"`
	CompletedToday int64                    `json:"completed_today"`
}

// WeekPlanDay 本周计划中的一天
type WeekPlanDay struct {
	DayOfWeek int                      `json:"day_of_week"`
	Date      string                   `json:"date"`
	IsToday   bool                     `json:"is_today"`
	Workouts  []WorkoutSummaryResponse `json:"workouts"`
}

// WeekPlanResponse 本周计划（周一至周日）
type WeekPlanResponse struct {
	PlanID    *string       `json:"plan_id"`
	PlanName  *string       `json:"plan_name"`
	WeekStart string        `json:"week_start"`
	Days      []WeekPlanDay `json:"days"`
}

// QuickStatsResponse 概览统计
type QuickStatsResponse struct {
	SessionsThisWeek int64 `json:"sessions_this_week"`
	CompletedToday   int64 `json:"completed_today"`
	TotalSessions    int64 `json:"total_sessions"`
	StreakDays       int   `json:"streak_days"`
}

// CoachSummaryResponse 学员的教练
type CoachSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
