package model

import "time"

// WorkoutSession 训练课 — 对应 workout_sessions
// CompletedAt 为空表示进行中
type WorkoutSession struct {
	SessionID   string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	UserID      string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	WorkoutID   string     `gorm:"type:uuid;not null"                             json:"workout_id"`
	PlanID      *string    `gorm:"type:uuid"                                      json:"plan_id,omitempty"`
	SessionType string     `gorm:"type:varchar(20);not null"                      json:"session_type"` // assigned | swap | adhoc
	CompletedAt *time.Time `gorm:"index"                                          json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Workout *Workout      `gorm:"foreignKey:WorkoutID;references:WorkoutID" json:"workout,omitempty"`
	Logs    []ExerciseLog `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
}

func (WorkoutSession) TableName() string { return "workout_sessions" }

// ExerciseLog 训练记录（一组/一段）— 对应 exercise_logs
type ExerciseLog struct {
	LogID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	SessionID string    `gorm:"type:uuid;not null;index"                       json:"session_id"`
	Sets      *int      `json:"sets,omitempty"`
	Reps      *int      `json:"reps,omitempty"`
	Weight    *float64  `gorm:"type:numeric(8,2)" json:"weight,omitempty"`
	Duration  *int      `json:"duration,omitempty"` // 秒
	Notes     *string   `gorm:"type:text"         json:"notes,omitempty"`
	LoggedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"logged_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ExerciseLog) TableName() string { return "exercise_logs" }
