package dto

import (
	"bytes"
	"encoding/json"
)

// ── 训练课请求 ──

// CreateSessionRequest 开始一次训练
type CreateSessionRequest struct {
	WorkoutID   string  `json:"workout_id"   binding:"required,uuid"`
	PlanID      *string `json:"plan_id"      binding:"omitempty,uuid"`
	SessionType string  `json:"session_type" binding:"required,oneof=assigned swap adhoc"`
}

// LogInput 新增训练记录
type LogInput struct {
	Sets     *int     `json:"sets"     binding:"omitempty,min=0"`
	Reps     *int     `json:"reps"     binding:"omitempty,min=0"`
	Weight   *float64 `json:"weight"   binding:"omitempty,min=0"`
	Duration *int     `json:"duration" binding:"omitempty,min=0"`
	Notes    *string  `json:"notes"    binding:"omitempty,max=1000"`
}

// UpdateLogRequest 部分更新训练记录：未出现的字段保持不变，显式 null 清空该字段
type UpdateLogRequest struct {
	LogInput
	nulls map[string]bool
}

// UnmarshalJSON 额外记录请求体中值为 null 的字段
func (r *UpdateLogRequest) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &r.LogInput); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.nulls = make(map[string]bool)
	for key, value := range raw {
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			r.nulls[key] = true
		}
	}
	return nil
}

// Cleared 字段（JSON 名）是否被显式置为 null
func (r *UpdateLogRequest) Cleared(field string) bool {
	return r.nulls[field]
}

// SessionLogUpsert 批量更新中的一条记录：ID 为空时新增，否则整体覆盖已有记录
type SessionLogUpsert struct {
	ID *string `json:"id" binding:"omitempty,uuid"`
	LogInput
}

// UpdateSessionRequest 批量新增/更新训练记录
type UpdateSessionRequest struct {
	Logs []SessionLogUpsert `json:"logs" binding:"dive"`
}

// ── 训练课响应 ──

// SessionLogResponse 训练记录
type SessionLogResponse struct {
	ID        string   `json:"id"`
	Sets      *int     `json:"sets"`
	Reps      *int     `json:"reps"`
	Weight    *float64 `json:"weight"`
	Duration  *int     `json:"duration"`
	Notes     *string  `json:"notes"`
	LoggedAt  string   `json:"logged_at"`
	UpdatedAt string   `json:"updated_at"`
}

// SessionWorkoutResponse 训练课关联动作
type SessionWorkoutResponse struct {
	WorkoutSummaryResponse
	TargetSets      *int     `json:"target_sets"`
	TargetReps      *int     `json:"target_reps"`
	SuggestedWeight *float64 `json:"suggested_weight"`
	TargetDuration  *int     `json:"target_duration"`
}

// SessionResponse 训练课详情
type SessionResponse struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	PlanID      *string                `json:"plan_id"`
	SessionType string                 `json:"session_type"`
	CompletedAt *string                `json:"completed_at"`
	IsEditable  bool                   `json:"is_editable"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
	Workout     SessionWorkoutResponse `json:"workout"`
	Logs        []SessionLogResponse   `json:"logs"`
}
