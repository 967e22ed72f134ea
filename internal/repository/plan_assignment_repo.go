package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
)

// PlanAssignmentRepository 计划分配数据访问接口
type PlanAssignmentRepository interface {
	Create(ctx context.Context, assignment *model.PlanAssignment) error
	// GetByIDForUser 返回属于该用户的分配（含 Plan）
	GetByIDForUser(ctx context.Context, id, userID string) (*model.PlanAssignment, error)
	// FindOpen 用户对该计划最近一条 pending/active 分配
	FindOpen(ctx context.Context, planID, userID string) (*model.PlanAssignment, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	// HasActive 用户对该计划是否持有 active 分配
	HasActive(ctx context.Context, planID, userID string) (bool, error)
	// ListActiveByUser 用户全部 active 分配（正常情况下至多一条）
	ListActiveByUser(ctx context.Context, userID string) ([]model.PlanAssignment, error)
	// Activate 置为 active 并清空 deactivated_at
	Activate(ctx context.Context, id string, at time.Time) error
	// Deactivate 批量置为 inactive
	Deactivate(ctx context.Context, ids []string, at time.Time) error
	// DeclinePending 仅当仍为 pending 时置为 inactive，返回受影响行数
	DeclinePending(ctx context.Context, id string, at time.Time) (int64, error)
	// GetCurrentActive 当前生效计划：active 且计划未归档，按 activated_at、assigned_at 倒序取第一条
	GetCurrentActive(ctx context.Context, userID string) (*model.PlanAssignment, error)
	// ListPendingByUser pending 分配，按 assigned_at 倒序
	ListPendingByUser(ctx context.Context, userID string) ([]model.PlanAssignment, error)
	// ListByPlan 计划的全部分配（含 User），按 assigned_at 倒序
	ListByPlan(ctx context.Context, planID string) ([]model.PlanAssignment, error)
	// ListActiveByUsers 一批用户的 active 分配（含 Plan），按 assigned_at 倒序
	ListActiveByUsers(ctx context.Context, userIDs []string) ([]model.PlanAssignment, error)
	CountPendingByUsers(ctx context.Context, userIDs []string) (map[string]int64, error)
}

type planAssignmentRepo struct {
	db *gorm.DB
}

// NewPlanAssignmentRepo 创建 PlanAssignmentRepository 实例
func NewPlanAssignmentRepo(db *gorm.DB) PlanAssignmentRepository {
	return &planAssignmentRepo{db: db}
}

func (r *planAssignmentRepo) Create(ctx context.Context, assignment *model.PlanAssignment) error {
	return r.db.WithContext(ctx).Omit("Plan", "User").Create(assignment).Error
}

func (r *planAssignmentRepo) GetByIDForUser(ctx context.Context, id, userID string) (*model.PlanAssignment, error) {
	var a model.PlanAssignment
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("assignment_id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *planAssignmentRepo) FindOpen(ctx context.Context, planID, userID string) (*model.PlanAssignment, error) {
	var a model.PlanAssignment
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND user_id = ? AND status IN ?", planID, userID,
			[]string{model.AssignmentPending, model.AssignmentActive}).
		Order("assigned_at DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *planAssignmentRepo) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PlanAssignment{}).
		Where("user_id = ? AND status = ?", userID, model.AssignmentActive).
		Count(&count).Error
	return count, err
}

func (r *planAssignmentRepo) HasActive(ctx context.Context, planID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PlanAssignment{}).
		Where("plan_id = ? AND user_id = ? AND status = ?", planID, userID, model.AssignmentActive).
		Count(&count).Error
	return count > 0, err
}

func (r *planAssignmentRepo) ListActiveByUser(ctx context.Context, userID string) ([]model.PlanAssignment, error) {
	var list []model.PlanAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.AssignmentActive).
		Find(&list).Error
	return list, err
}

func (r *planAssignmentRepo) Activate(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.PlanAssignment{}).
		Where("assignment_id = ?", id).
		Updates(map[string]interface{}{
			"status":         model.AssignmentActive,
			"activated_at":   at,
			"deactivated_at": nil,
			"updated_at":     at,
		}).Error
}

func (r *planAssignmentRepo) Deactivate(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.PlanAssignment{}).
		Where("assignment_id IN ?", ids).
		Updates(map[string]interface{}{
			"status":         model.AssignmentInactive,
			"deactivated_at": at,
			"updated_at":     at,
		}).Error
}

func (r *planAssignmentRepo) DeclinePending(ctx context.Context, id string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PlanAssignment{}).
		Where("assignment_id = ? AND status = ?", id, model.AssignmentPending).
		Updates(map[string]interface{}{
			"status":         model.AssignmentInactive,
			"deactivated_at": at,
			"updated_at":     at,
		})
	return result.RowsAffected, result.Error
}

func (r *planAssignmentRepo) GetCurrentActive(ctx context.Context, userID string) (*model.PlanAssignment, error) {
	var a model.PlanAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN workout_plans wp ON wp.plan_id = plan_assignments.plan_id").
		Preload("Plan").
		Preload("Plan.Coach").
		Preload("Plan.Days", func(db *gorm.DB) *gorm.DB { return db.Order("day_of_week ASC") }).
		Preload("Plan.Days.Workouts").
		Preload("Plan.Days.Workouts.MuscleGroups").
		Where("plan_assignments.user_id = ? AND plan_assignments.status = ? AND wp.is_archived = ?",
			userID, model.AssignmentActive, false).
		Order("plan_assignments.activated_at DESC NULLS LAST").
		Order("plan_assignments.assigned_at DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *planAssignmentRepo) ListPendingByUser(ctx context.Context, userID string) ([]model.PlanAssignment, error) {
	var list []model.PlanAssignment
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Plan.Coach").
		Preload("Plan.Days").
		Preload("Plan.Days.Workouts").
		Where("user_id = ? AND status = ?", userID, model.AssignmentPending).
		Order("assigned_at DESC").
		Find(&list).Error
	return list, err
}

func (r *planAssignmentRepo) ListByPlan(ctx context.Context, planID string) ([]model.PlanAssignment, error) {
	var list []model.PlanAssignment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("plan_id = ?", planID).
		Order("assigned_at DESC").
		Find(&list).Error
	return list, err
}

func (r *planAssignmentRepo) ListActiveByUsers(ctx context.Context, userIDs []string) ([]model.PlanAssignment, error) {
	var list []model.PlanAssignment
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Preload("Plan.Days").
		Preload("Plan.Days.Workouts").
		Where("user_id IN ? AND status = ?", userIDs, model.AssignmentActive).
		Order("assigned_at DESC").
		Find(&list).Error
	return list, err
}

func (r *planAssignmentRepo) CountPendingByUsers(ctx context.Context, userIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		UserID string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.PlanAssignment{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ? AND status = ?", userIDs, model.AssignmentPending).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}
