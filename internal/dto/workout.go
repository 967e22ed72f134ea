package dto

// ── 动作库请求 ──

// WorkoutListRequest 动作列表查询
type WorkoutListRequest struct {
	PaginationRequest
	Type          string `form:"type"            binding:"omitempty,oneof=strength cardio"`
	MuscleGroupID string `form:"muscle_group_id" binding:"omitempty,uuid"`
	IsArchived    *bool  `form:"is_archived"`
	Search        string `form:"search"          binding:"omitempty,max=160"`
}

// CreateWorkoutRequest 创建动作；力量/有氧字段的互斥规则在 service 层校验
type CreateWorkoutRequest struct {
	Name            string   `json:"name"             binding:"required,max=160"`
	Description     string   `json:"description"      binding:"omitempty,max=2000"`
	Instructions    string   `json:"instructions"     binding:"omitempty,max=4000"`
	Type            string   `json:"type"             binding:"required,oneof=strength cardio"`
	CardioTypeID    *string  `json:"cardio_type_id"   binding:"omitempty,uuid"`
	TargetSets      *int     `json:"target_sets"      binding:"omitempty,min=1,max=100"`
	TargetReps      *int     `json:"target_reps"      binding:"omitempty,min=1,max=500"`
	SuggestedWeight *float64 `json:"suggested_weight" binding:"omitempty,min=0"`
	TargetDuration  *int     `json:"target_duration"  binding:"omitempty,min=1,max=1440"`
	DifficultyLevel *string  `json:"difficulty_level" binding:"omitempty,oneof=easy medium hard"`
	MuscleGroupIDs  []string `json:"muscle_group_ids" binding:"required,min=1,dive,uuid"`
}

// UpdateWorkoutRequest 更新动作（部分更新；MuscleGroupIDs 非 nil 时整体替换）
type UpdateWorkoutRequest struct {
	Name            *string   `json:"name"             binding:"omitempty,max=160"`
	Description     *string   `json:"description"      binding:"omitempty,max=2000"`
	Instructions    *string   `json:"instructions"     binding:"omitempty,max=4000"`
	Type            *string   `json:"type"             binding:"omitempty,oneof=strength cardio"`
	CardioTypeID    *string   `json:"cardio_type_id"   binding:"omitempty,uuid"`
	TargetSets      *int      `json:"target_sets"      binding:"omitempty,min=1,max=100"`
	TargetReps      *int      `json:"target_reps"      binding:"omitempty,min=1,max=500"`
	SuggestedWeight *float64  `json:"suggested_weight" binding:"omitempty,min=0"`
	TargetDuration  *int      `json:"target_duration"  binding:"omitempty,min=1,max=1440"`
	DifficultyLevel *string   `json:"difficulty_level" binding:"omitempty,oneof=easy medium hard"`
	MuscleGroupIDs  *[]string `json:"muscle_group_ids" binding:"omitempty,dive,uuid"`
}

// Empty 是否没有任何待更新字段
func (r *UpdateWorkoutRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.Instructions == nil &&
		r.Type == nil && r.CardioTypeID == nil && r.TargetSets == nil &&
		r.TargetReps == nil && r.SuggestedWeight == nil && r.TargetDuration == nil &&
		r.DifficultyLevel == nil && r.MuscleGroupIDs == nil
}

// AlternativesRequest 替代动作查询
type AlternativesRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// GetLimit 默认 12
func (r *AlternativesRequest) GetLimit() int {
	if r.Limit <= 0 {
		return 12
	}
	return r.Limit
}

// CreateMuscleGroupRequest 新增肌群
type CreateMuscleGroupRequest struct {
	Name string `json:"name" binding:"required,max=80"`
	Icon string `json:"icon" binding:"required,max=80"`
}

// ── 动作库响应 ──

// CardioTypeResponse 有氧类型
type CardioTypeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MuscleGroupDetailResponse 肌群字典项
type MuscleGroupDetailResponse struct {
	MuscleGroupResponse
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// WorkoutResponse 动作详情
type WorkoutResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Instructions    string                `json:"instructions"`
	Type            string                `json:"type"`
	CardioType      *CardioTypeResponse   `json:"cardio_type"`
	TargetSets      *int                  `json:"target_sets"`
	TargetReps      *int                  `json:"target_reps"`
	SuggestedWeight *float64              `json:"suggested_weight"`
	TargetDuration  *int                  `json:"target_duration"`
	DifficultyLevel *string               `json:"difficulty_level"`
	IsArchived      bool                  `json:"is_archived"`
	MuscleGroups    []MuscleGroupResponse `json:"muscle_groups"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at"`
}

// WorkoutArchiveResponse 归档结果，附带阻塞归档的活跃计划数
type WorkoutArchiveResponse struct {
	Workout         WorkoutResponse `json:"workout"`
	ActivePlanCount int64           `json:"active_plan_count"`
}
