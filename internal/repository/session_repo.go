package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fitcoach/backend/internal/model"
)

// SessionRepository 训练课与训练记录数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.WorkoutSession) error
	// GetByIDForUser 返回属于该用户的训练课（含 Workout.MuscleGroups 与 Logs）
	GetByIDForUser(ctx context.Context, id, userID string) (*model.WorkoutSession, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	Touch(ctx context.Context, id string, at time.Time) error

	CreateLog(ctx context.Context, log *model.ExerciseLog) error
	UpdateLog(ctx context.Context, log *model.ExerciseLog) error

	// CountCompletedForPlan 窗口 [start, end) 内该计划指定类型的已完成训练课数
	CountCompletedForPlan(ctx context.Context, userID, planID, sessionType string, start, end time.Time) (int64, error)
	// CountCompleted 窗口 [start, end) 内已完成训练课数；start/end 为 nil 时不限
	CountCompleted(ctx context.Context, userID string, start, end *time.Time) (int64, error)
	// ListCompleted 窗口内已完成训练课（含 Workout.MuscleGroups 与 Logs），按 completed_at 倒序
	ListCompleted(ctx context.Context, userID string, start, end time.Time) ([]model.WorkoutSession, error)
	// ListCompletedTimes 已完成时间；start/end 为 nil 时不限
	ListCompletedTimes(ctx context.Context, userID string, start, end *time.Time) ([]time.Time, error)
	ListHistory(ctx context.Context, filter SessionHistoryFilter, offset, limit int) ([]model.WorkoutSession, int64, error)
}

// SessionHistoryFilter 训练历史筛选条件
type SessionHistoryFilter struct {
	UserID        string
	Start         *time.Time // completed_at >= Start
	End           *time.Time // completed_at < End
	WorkoutType   string
	MuscleGroupID string
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.WorkoutSession) error {
	return r.db.WithContext(ctx).Omit("Workout", "Logs").Create(session).Error
}

func (r *sessionRepo) GetByIDForUser(ctx context.Context, id, userID string) (*model.WorkoutSession, error) {
	var s model.WorkoutSession
	err := r.db.WithContext(ctx).
		Preload("Workout").
		Preload("Workout.MuscleGroups").
		Preload("Logs").
		Where("session_id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkoutSession{}).
		Where("session_id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{"completed_at": at, "updated_at": at}).Error
}

func (r *sessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkoutSession{}).
		Where("session_id = ?", id).
		Update("updated_at", at).Error
}

func (r *sessionRepo) CreateLog(ctx context.Context, log *model.ExerciseLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *sessionRepo) UpdateLog(ctx context.Context, log *model.ExerciseLog) error {
	return r.db.WithContext(ctx).
		Model(&model.ExerciseLog{}).
		Where("log_id = ? AND session_id = ?", log.LogID, log.SessionID).
		Updates(map[string]interface{}{
			"sets":       log.Sets,
			"reps":       log.Reps,
			"weight":     log.Weight,
			"duration":   log.Duration,
			"notes":      log.Notes,
			"updated_at": log.UpdatedAt,
		}).Error
}

func (r *sessionRepo) CountCompletedForPlan(ctx context.Context, userID, planID, sessionType string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WorkoutSession{}).
		Where("user_id = ? AND plan_id = ? AND session_type = ?", userID, planID, sessionType).
		Where("completed_at IS NOT NULL AND completed_at >= ? AND completed_at < ?", start, end).
		Count(&count).Error
	return count, err
}

// completedScope 已完成训练课 + 可选时间窗口
func completedScope(db *gorm.DB, userID string, start, end *time.Time) *gorm.DB {
	db = db.Where("user_id = ? AND completed_at IS NOT NULL", userID)
	if start != nil {
		db = db.Where("completed_at >= ?", *start)
	}
	if end != nil {
		db = db.Where("completed_at < ?", *end)
	}
	return db
}

func (r *sessionRepo) CountCompleted(ctx context.Context, userID string, start, end *time.Time) (int64, error) {
	var count int64
	err := completedScope(r.db.WithContext(ctx).Model(&model.WorkoutSession{}), userID, start, end).
		Count(&count).Error
	return count, err
}

func (r *sessionRepo) ListCompleted(ctx context.Context, userID string, start, end time.Time) ([]model.WorkoutSession, error) {
	var list []model.WorkoutSession
	err := completedScope(r.db.WithContext(ctx), userID, &start, &end).
		Preload("Workout").
		Preload("Workout.MuscleGroups").
		Preload("Logs").
		Order("completed_at DESC").
		Find(&list).Error
	return list, err
}

func (r *sessionRepo) ListCompletedTimes(ctx context.Context, userID string, start, end *time.Time) ([]time.Time, error) {
	var times []time.Time
	err := completedScope(r.db.WithContext(ctx).Model(&model.WorkoutSession{}), userID, start, end).
		Pluck("completed_at", &times).Error
	return times, err
}

func (r *sessionRepo) ListHistory(ctx context.Context, filter SessionHistoryFilter, offset, limit int) ([]model.WorkoutSession, int64, error) {
	var list []model.WorkoutSession
	var total int64

	db := completedScope(r.db.WithContext(ctx).Model(&model.WorkoutSession{}), filter.UserID, filter.Start, filter.End)
	if filter.WorkoutType != "" {
		db = db.Where("workout_id IN (?)",
			r.db.Model(&model.Workout{}).Select("workout_id").Where("type = ?", filter.WorkoutType))
	}
	if filter.MuscleGroupID != "" {
		db = db.Where("workout_id IN (?)",
			r.db.Table("workout_muscle_groups").Select("workout_id").Where("muscle_group_id = ?", filter.MuscleGroupID))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("Workout").
		Preload("Workout.MuscleGroups").
		Preload("Logs").
		Order("completed_at DESC").
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}
