package model

import "time"

// BaseModel 通用审计字段（业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// ── 枚举 ──

// 用户角色
const (
	RoleAdmin = "admin"
	RoleCoach = "coach"
	RoleUser  = "user"
)

// ValidRole 校验角色取值
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCoach || role == RoleUser
}

// 计划分配状态
const (
	AssignmentPending  = "pending"
	AssignmentActive   = "active"
	AssignmentInactive = "inactive"
)

// 训练课类型
const (
	SessionAssigned = "assigned" // 按计划执行
	SessionSwap     = "swap"     // 计划内替换
	SessionAdhoc    = "adhoc"    // 临时加练，不挂靠计划
)

// ValidSessionType 校验训练课类型
func ValidSessionType(t string) bool {
	return t == SessionAssigned || t == SessionSwap || t == SessionAdhoc
}

// 动作类型
const (
	WorkoutStrength = "strength"
	WorkoutCardio   = "cardio"
)

// 有氧难度
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)
