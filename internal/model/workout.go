package model

import "time"

// MuscleGroup 肌群字典表 — 对应 muscle_groups
type MuscleGroup struct {
	MuscleGroupID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"muscle_group_id"`
	Name          string    `gorm:"type:varchar(80);not null;uniqueIndex"          json:"name"`
	Icon          string    `gorm:"type:varchar(80)"                               json:"icon,omitempty"`
	IsDefault     bool      `gorm:"not null;default:true"                          json:"is_default"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

func (MuscleGroup) TableName() string { return "muscle_groups" }

// CardioType 有氧类型字典表 — 对应 cardio_types
type CardioType struct {
	CardioTypeID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cardio_type_id"`
	Name         string `gorm:"type:varchar(120);not null;uniqueIndex"         json:"name"`
	Description  string `gorm:"type:text;not null"                             json:"description"`
}

func (CardioType) TableName() string { return "cardio_types" }

// Workout 动作库 — 对应 workouts
//
// strength 需要 target_sets/target_reps，不允许有氧字段；
// cardio 需要 cardio_type_id/target_duration/difficulty_level，不允许力量字段
type Workout struct {
	WorkoutID       string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"workout_id"`
	Name            string   `gorm:"type:varchar(160);not null"                     json:"name"`
	Description     string   `gorm:"type:text"                                      json:"description,omitempty"`
	Instructions    string   `gorm:"type:text"                                      json:"instructions,omitempty"`
	Type            string   `gorm:"type:varchar(20);not null"                      json:"type"` // strength | cardio
	CardioTypeID    *string  `gorm:"type:uuid"                                      json:"cardio_type_id,omitempty"`
	TargetSets      *int     `json:"target_sets,omitempty"`
	TargetReps      *int     `json:"target_reps,omitempty"`
	SuggestedWeight *float64 `gorm:"type:numeric(8,2)" json:"suggested_weight,omitempty"`
	TargetDuration  *int     `json:"target_duration,omitempty"` // 分钟
	DifficultyLevel *string  `gorm:"type:varchar(10)"  json:"difficulty_level,omitempty"`
	IsArchived      bool     `gorm:"not null;default:false" json:"is_archived"`
	BaseModel

	// 关联
	CardioType   *CardioType   `gorm:"foreignKey:CardioTypeID;references:CardioTypeID" json:"cardio_type,omitempty"`
	MuscleGroups []MuscleGroup `gorm:"many2many:workout_muscle_groups;foreignKey:WorkoutID;joinForeignKey:WorkoutID;references:MuscleGroupID;joinReferences:MuscleGroupID" json:"muscle_groups,omitempty"`
}

func (Workout) TableName() string { return "workouts" }
