package model

import "time"

// User 用户表 — 对应 users
// 主键与外部身份提供方的用户 ID 保持一致
type User struct {
	UserID        string     `gorm:"type:uuid;primaryKey"                  json:"user_id"`
	Name          string     `gorm:"type:varchar(120);not null"            json:"name"`
	Email         string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Role          string     `gorm:"type:varchar(20);not null;default:'user'" json:"role"` // admin | coach | user
	IsActive      bool       `gorm:"not null;default:true"                 json:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// CoachUserAssignment 教练-学员关系表 — 对应 coach_user_assignments
type CoachUserAssignment struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CoachID    string    `gorm:"type:uuid;not null;uniqueIndex:uq_coach_user"   json:"coach_id"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:uq_coach_user"   json:"user_id"`
	AssignedBy *string   `gorm:"type:uuid"                                      json:"assigned_by,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Coach *User `gorm:"foreignKey:CoachID;references:UserID" json:"coach,omitempty"`
	User  *User `gorm:"foreignKey:UserID;references:UserID"  json:"user,omitempty"`
}

func (CoachUserAssignment) TableName() string { return "coach_user_assignments" }
