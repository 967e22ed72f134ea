package repository

import (
	"context"

	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
)

// CoachRosterRepository 教练-学员关系数据访问接口
type CoachRosterRepository interface {
	Create(ctx context.Context, link *model.CoachUserAssignment) error
	Delete(ctx context.Context, coachID, userID string) (int64, error)
	// FilterRosterUserIDs 返回 userIDs 中属于该教练名下的子集
	FilterRosterUserIDs(ctx context.Context, coachID string, userIDs []string) ([]string, error)
	// ListRosterUsers 教练名下学员，按姓名升序
	ListRosterUsers(ctx context.Context, coachID string) ([]model.User, error)
	// ListCoachesOfUser 学员的教练，按姓名升序
	ListCoachesOfUser(ctx context.Context, userID string) ([]model.User, error)
	CountByCoach(ctx context.Context, coachID string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type coachRosterRepo struct {
	db *gorm.DB
}

// NewCoachRosterRepo 创建 CoachRosterRepository 实例
func NewCoachRosterRepo(db *gorm.DB) CoachRosterRepository {
	return &coachRosterRepo{db: db}
}

func (r *coachRosterRepo) Create(ctx context.Context, link *model.CoachUserAssignment) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *coachRosterRepo) Delete(ctx context.Context, coachID, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("coach_id = ? AND user_id = ?", coachID, userID).
		Delete(&model.CoachUserAssignment{})
	return result.RowsAffected, result.Error
}

func (r *coachRosterRepo) FilterRosterUserIDs(ctx context.Context, coachID string, userIDs []string) ([]string, error) {
	var ids []string
	if len(userIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.CoachUserAssignment{}).
		Where("coach_id = ? AND user_id IN ?", coachID, userIDs).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *coachRosterRepo) ListRosterUsers(ctx context.Context, coachID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN coach_user_assignments cua ON cua.user_id = users.user_id").
		Where("cua.coach_id = ?", coachID).
		Order("users.name ASC").
		Find(&users).Error
	return users, err
}

func (r *coachRosterRepo) ListCoachesOfUser(ctx context.Context, userID string) ([]model.User, error) {
	var coaches []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN coach_user_assignments cua ON cua.coach_id = users.user_id").
		Where("cua.user_id = ?", userID).
		Order("users.name ASC").
		Find(&coaches).Error
	return coaches, err
}

func (r *coachRosterRepo) CountByCoach(ctx context.Context, coachID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CoachUserAssignment{}).
		Where("coach_id = ?", coachID).
		Count(&count).Error
	return count, err
}

func (r *coachRosterRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CoachUserAssignment{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
