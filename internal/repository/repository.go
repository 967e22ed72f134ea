package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User        UserRepository
	CoachRoster CoachRosterRepository
	Workout     WorkoutRepository
	Lookup      LookupRepository
	Plan        PlanRepository
	Assignment  PlanAssignmentRepository
	Session     SessionRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		User:        NewUserRepo(db),
		CoachRoster: NewCoachRosterRepo(db),
		Workout:     NewWorkoutRepo(db),
		Lookup:      NewLookupRepo(db),
		Plan:        NewPlanRepo(db),
		Assignment:  NewPlanAssignmentRepo(db),
		Session:     NewSessionRepo(db),
	}
}

// Transaction 在单个数据库事务内执行 fn，fn 返回错误或 panic 时整体回滚
// 未绑定数据库（单元测试中以 mock 组装）时直接在当前聚合上执行
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
