package dto

// ── 训练历史 ──

// SessionHistoryRequest 训练历史查询
type SessionHistoryRequest struct {
	PaginationRequest
	DateRangeRequest
	WorkoutType   string `form:"workout_type"    binding:"omitempty,oneof=strength cardio"`
	MuscleGroupID string `form:"muscle_group_id" binding:"omitempty,uuid"`
}

// SessionHistoryItem 已完成训练课及其汇总
type SessionHistoryItem struct {
	ID            string                 `json:"id"`
	SessionType   string                 `json:"session_type"`
	PlanID        *string                `json:"plan_id"`
	CompletedAt   string                 `json:"completed_at"`
	Workout       WorkoutSummaryResponse `json:"workout"`
	TotalLogs     int                    `json:"total_logs"`
	TotalSets     int                    `json:"total_sets"`
	TotalReps     int                    `json:"total_reps"`
	TotalDuration int                    `json:"total_duration"`
	TotalVolume   float64                `json:"total_volume"`
	MaxWeight     *float64               `json:"max_weight"`
}

// ── 肌群进度 ──

// MuscleGroupProgressItem 单个肌群的训练量汇总
type MuscleGroupProgressItem struct {
	MuscleGroupID string  `json:"muscle_group_id"`
	Name          string  `json:"name"`
	Icon          string  `json:"icon,omitempty"`
	SessionCount  int     `json:"session_count"`
	TotalVolume   float64 `json:"total_volume"`
	TotalDuration int     `json:"total_duration"`
}

// MuscleGroupProgressResponse 肌群进度
type MuscleGroupProgressResponse struct {
	StartDate    string                    `json:"start_date"`
	EndDate      string                    `json:"end_date"`
	MuscleGroups []MuscleGroupProgressItem `json:"muscle_groups"`
}

// ── 训练频次 ──

// FrequencyRequest 训练频次查询
type FrequencyRequest struct {
	DateRangeRequest
	Period string `form:"period" binding:"omitempty,max=20"`
}

// FrequencyBucket 频次分桶
type FrequencyBucket struct {
	Label        string `json:"label"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	SessionCount int    `json:"session_count"`
}

// FrequencyProgressResponse 训练频次
type FrequencyProgressResponse struct {
	Period        string            `json:"period"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date"`
	TotalSessions int               `json:"total_sessions"`
	Buckets       []FrequencyBucket `json:"buckets"`
}
