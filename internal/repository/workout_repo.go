package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
)

// WorkoutRepository 动作库数据访问接口
type WorkoutRepository interface {
	Create(ctx context.Context, workout *model.Workout) error
	// GetByID 含 MuscleGroups 与 CardioType
	GetByID(ctx context.Context, id string) (*model.Workout, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Workout, error)
	List(ctx context.Context, filter WorkoutFilter, offset, limit int) ([]model.Workout, int64, error)
	// NameExists 名称（忽略大小写）是否已被其他动作占用
	NameExists(ctx context.Context, name, excludeID string) (bool, error)
	// Save 覆盖标量字段；groups 非 nil 时整体替换肌群关联
	Save(ctx context.Context, workout *model.Workout, groups []model.MuscleGroup) error
	SetArchived(ctx context.Context, id string, archived bool, actorID string, at time.Time) error
	// CountActivePlanDependencies 引用该动作、未归档且存在 active 分配的计划数
	CountActivePlanDependencies(ctx context.Context, id string) (int64, error)
	// ListSharingMuscleGroups 与给定肌群有交集的未归档动作（排除 excludeID）
	ListSharingMuscleGroups(ctx context.Context, excludeID string, groupIDs []string) ([]model.Workout, error)
	Count(ctx context.Context) (int64, error)
}

// WorkoutFilter 动作列表筛选条件
type WorkoutFilter struct {
	Type          string
	MuscleGroupID string
	IsArchived    *bool
	Search        string // 名称/描述模糊匹配
}

type workoutRepo struct {
	db *gorm.DB
}

// NewWorkoutRepo 创建 WorkoutRepository 实例
func NewWorkoutRepo(db *gorm.DB) WorkoutRepository {
	return &workoutRepo{db: db}
}

func (r *workoutRepo) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("MuscleGroups").Preload("CardioType")
}

func (r *workoutRepo) Create(ctx context.Context, workout *model.Workout) error {
	return r.db.WithContext(ctx).Omit("CardioType", "MuscleGroups.*").Create(workout).Error
}

func (r *workoutRepo) GetByID(ctx context.Context, id string) (*model.Workout, error) {
	var workout model.Workout
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("workout_id = ?", id).
		First(&workout).Error
	if err != nil {
		return nil, err
	}
	return &workout, nil
}

func (r *workoutRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Workout, error) {
	var workouts []model.Workout
	if len(ids) == 0 {
		return workouts, nil
	}
	err := r.db.WithContext(ctx).
		Preload("MuscleGroups").
		Where("workout_id IN ?", ids).
		Find(&workouts).Error
	return workouts, err
}

func (r *workoutRepo) List(ctx context.Context, filter WorkoutFilter, offset, limit int) ([]model.Workout, int64, error) {
	var workouts []model.Workout
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Workout{})
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.IsArchived != nil {
		db = db.Where("is_archived = ?", *filter.IsArchived)
	}
	if filter.MuscleGroupID != "" {
		db = db.Where("EXISTS (SELECT 1 FROM workout_muscle_groups wmg WHERE wmg.workout_id = workouts.workout_id AND wmg.muscle_group_id = ?)",
			filter.MuscleGroupID)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		db = db.Where("lower(name) LIKE ? OR lower(coalesce(description, '')) LIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.withRelations(db).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&workouts).Error
	return workouts, total, err
}

func (r *workoutRepo) NameExists(ctx context.Context, name, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).
		Model(&model.Workout{}).
		Where("lower(name) = ?", strings.ToLower(name))
	if excludeID != "" {
		db = db.Where("workout_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *workoutRepo) Save(ctx context.Context, workout *model.Workout, groups []model.MuscleGroup) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("CardioType", "MuscleGroups").Save(workout).Error; err != nil {
		return err
	}
	if groups == nil {
		return nil
	}
	return db.Model(workout).Association("MuscleGroups").Replace(groups)
}

func (r *workoutRepo) SetArchived(ctx context.Context, id string, archived bool, actorID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Workout{}).
		Where("workout_id = ?", id).
		Updates(map[string]interface{}{
			"is_archived": archived,
			"updated_at":  at,
			"updated_by":  actorID,
		}).Error
}

func (r *workoutRepo) CountActivePlanDependencies(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("workout_plans wp").
		Joins("JOIN plan_days pd ON pd.plan_id = wp.plan_id").
		Joins("JOIN plan_day_workouts pdw ON pdw.plan_day_id = pd.plan_day_id").
		Joins("JOIN plan_assignments pa ON pa.plan_id = wp.plan_id").
		Where("pdw.workout_id = ? AND pa.status = ? AND wp.is_archived = ?", id, model.AssignmentActive, false).
		Distinct("wp.plan_id").
		Count(&count).Error
	return count, err
}

func (r *workoutRepo) ListSharingMuscleGroups(ctx context.Context, excludeID string, groupIDs []string) ([]model.Workout, error) {
	var workouts []model.Workout
	if len(groupIDs) == 0 {
		return workouts, nil
	}
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("workout_id <> ? AND is_archived = ?", excludeID, false).
		Where("EXISTS (SELECT 1 FROM workout_muscle_groups wmg WHERE wmg.workout_id = workouts.workout_id AND wmg.muscle_group_id IN ?)",
			groupIDs).
		Find(&workouts).Error
	return workouts, err
}

func (r *workoutRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Workout{}).Count(&count).Error
	return count, err
}
