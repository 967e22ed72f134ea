package service

import (
	"context"

	"go.uber.org/zap"

	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
)

// CompletionService 计划周完成率
type CompletionService interface {
	// WeeklyCompletionPercent plan 需已加载 Days.Workouts
	WeeklyCompletionPercent(ctx context.Context, userID string, plan *model.WorkoutPlan) (float64, error)
}

type completionService struct {
	repo   *repository.Repository
	now    clock.Clock
	logger *zap.Logger
}

// NewCompletionService 创建 CompletionService 实例
func NewCompletionService(repo *repository.Repository, now clock.Clock, logger *zap.Logger) CompletionService {
	return &completionService{repo: repo, now: now, logger: logger}
}

func (s *completionService) WeeklyCompletionPercent(ctx context.Context, userID string, plan *model.WorkoutPlan) (float64, error) {
	scheduled := plan.ScheduledWorkoutCount()
	if scheduled == 0 {
		return 0, nil
	}

	// 只统计按计划执行的训练，swap/adhoc 不计入
	week := clock.WeekWindow(s.now())
	completed, err := s.repo.Session.CountCompletedForPlan(ctx, userID, plan.PlanID, model.SessionAssigned, week.Start, week.End)
	if err != nil {
		return 0, storeError(s.logger, "统计本周完成训练失败", err, nil,
			zap.String("user_id", userID), zap.String("plan_id", plan.PlanID))
	}

	return completionPercent(completed, scheduled), nil
}

// completionPercent min(100, round2(completed/scheduled*100))
func completionPercent(completed int64, scheduled int) float64 {
	if scheduled <= 0 {
		return 0
	}
	percent := round2(float64(completed) * 100 / float64(scheduled))
	if percent > 100 {
		return 100
	}
	return percent
}
