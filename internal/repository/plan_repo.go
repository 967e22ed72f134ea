package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
)

// PlanRepository 训练计划数据访问接口
type PlanRepository interface {
	Create(ctx context.Context, plan *model.WorkoutPlan) error
	GetByID(ctx context.Context, id string) (*model.WorkoutPlan, error)
	// GetByIDForCoach 仅返回该教练名下的计划
	GetByIDForCoach(ctx context.Context, id, coachID string) (*model.WorkoutPlan, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.WorkoutPlan, error)
	List(ctx context.Context, filter PlanFilter, offset, limit int) ([]model.WorkoutPlan, int64, error)
	UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error
	// ReplaceDays 删除计划原有的计划日（级联删除关联动作）并写入新的计划日
	ReplaceDays(ctx context.Context, planID string, days []model.PlanDay) error
	// ContainsWorkout 动作是否排在计划的任一计划日中
	ContainsWorkout(ctx context.Context, planID, workoutID string) (bool, error)
}

// PlanFilter 计划列表筛选条件
type PlanFilter struct {
	CoachID    string
	IsArchived *bool
	Search     string
}

type planRepo struct {
	db *gorm.DB
}

// NewPlanRepo 创建 PlanRepository 实例
func NewPlanRepo(db *gorm.DB) PlanRepository {
	return &planRepo{db: db}
}

// withPlanRelations 计划详情所需的全部预加载
func withPlanRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Coach").
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week ASC") }).
		Preload("Days.Workouts").
		Preload("Days.Workouts.MuscleGroups")
}

func (r *planRepo) Create(ctx context.Context, plan *model.WorkoutPlan) error {
	return r.db.WithContext(ctx).Omit("Days", "Coach").Create(plan).Error
}

func (r *planRepo) GetByID(ctx context.Context, id string) (*model.WorkoutPlan, error) {
	var plan model.WorkoutPlan
	err := withPlanRelations(r.db.WithContext(ctx)).
		Where("plan_id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepo) GetByIDForCoach(ctx context.Context, id, coachID string) (*model.WorkoutPlan, error) {
	var plan model.WorkoutPlan
	err := withPlanRelations(r.db.WithContext(ctx)).
		Where("plan_id = ? AND coach_id = ?", id, coachID).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepo) ListByIDs(ctx context.Context, ids []string) ([]model.WorkoutPlan, error) {
	var plans []model.WorkoutPlan
	if len(ids) == 0 {
		return plans, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Days").
		Preload("Days.Workouts").
		Where("plan_id IN ?", ids).
		Find(&plans).Error
	return plans, err
}

func (r *planRepo) List(ctx context.Context, filter PlanFilter, offset, limit int) ([]model.WorkoutPlan, int64, error) {
	var plans []model.WorkoutPlan
	var total int64

	db := r.db.WithContext(ctx).Model(&model.WorkoutPlan{}).Where("coach_id = ?", filter.CoachID)
	if filter.IsArchived != nil {
		db = db.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.Search != "" {
		db = db.Where("lower(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("Days").
		Preload("Days.Workouts").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&plans).Error
	return plans, total, err
}

func (r *planRepo) UpdateFields(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkoutPlan{}).
		Where("plan_id = ?", id).
		Updates(updates).Error
}

func (r *planRepo) ReplaceDays(ctx context.Context, planID string, days []model.PlanDay) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("plan_id = ?", planID).Delete(&model.PlanDay{}).Error; err != nil {
		return err
	}
	for i := range days {
		days[i].PlanID = planID
		// 只写入关联表，不回写动作本身
		if err := db.Omit("Workouts.*").Create(&days[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *planRepo) ContainsWorkout(ctx context.Context, planID, workoutID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("plan_day_workouts pdw").
		Joins("JOIN plan_days pd ON pd.plan_day_id = pdw.plan_day_id").
		Where("pd.plan_id = ? AND pdw.workout_id = ?", planID, workoutID).
		Count(&count).Error
	return count > 0, err
}
