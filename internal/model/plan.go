package model

import (
	"time"

	"gorm.io/datatypes"
)

// WorkoutPlan 训练计划 — 对应 workout_plans
type WorkoutPlan struct {
	PlanID     string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	Name       string         `gorm:"type:varchar(180);not null"                     json:"name"`
	CoachID    string         `gorm:"type:uuid;not null;index"                       json:"coach_id"`
	StartDate  datatypes.Date `gorm:"not null"                                       json:"start_date"`
	EndDate    datatypes.Date `gorm:"not null"                                       json:"end_date"`
	IsArchived bool           `gorm:"not null;default:false"                         json:"is_archived"`
	ArchivedAt *time.Time     `json:"archived_at,omitempty"`
	BaseModel

	// 关联
	Coach *User     `gorm:"foreignKey:CoachID;references:UserID" json:"coach,omitempty"`
	Days  []PlanDay `gorm:"foreignKey:PlanID;references:PlanID;constraint:OnDelete:CASCADE" json:"days,omitempty"`
}

func (WorkoutPlan) TableName() string { return "workout_plans" }

// ScheduledWorkoutCount 计划每周排定的训练动作总数
func (p *WorkoutPlan) ScheduledWorkoutCount() int {
	total := 0
	for i := range p.Days {
		total += len(p.Days[i].Workouts)
	}
	return total
}

// PlanDay 计划日 — 对应 plan_days，day_of_week 0=周一 … 6=周日
type PlanDay struct {
	PlanDayID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_day_id"`
	PlanID    string `gorm:"type:uuid;not null;uniqueIndex:uq_plan_day"     json:"plan_id"`
	DayOfWeek int    `gorm:"type:smallint;not null;uniqueIndex:uq_plan_day" json:"day_of_week"`

	// 关联
	Workouts []Workout `gorm:"many2many:plan_day_workouts;foreignKey:PlanDayID;joinForeignKey:PlanDayID;references:WorkoutID;joinReferences:WorkoutID" json:"workouts,omitempty"`
}

func (PlanDay) TableName() string { return "plan_days" }

// PlanAssignment 计划分配 — 对应 plan_assignments
// 同一用户同一时刻至多一条 active 记录（部分唯一索引保证）；记录只改状态不删除
type PlanAssignment struct {
	AssignmentID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	PlanID        string     `gorm:"type:uuid;not null;index"                       json:"plan_id"`
	UserID        string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | active | inactive
	AssignedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"assigned_at"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	BaseModel

	// 关联
	Plan *WorkoutPlan `gorm:"foreignKey:PlanID;references:PlanID" json:"plan,omitempty"`
	User *User        `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

func (PlanAssignment) TableName() string { return "plan_assignments" }

// IsOpen pending 或 active
func (a *PlanAssignment) IsOpen() bool {
	return a.Status == AssignmentPending || a.Status == AssignmentActive
}
