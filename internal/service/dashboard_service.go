package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
)

// DashboardService 学员首页
type DashboardService interface {
	TodayWorkout(ctx context.Context, userID string) (*dto.TodayWorkoutResponse, error)
	WeekPlan(ctx context.Context, userID string) (*dto.WeekPlanResponse, error)
	QuickStats(ctx context.Context, userID string) (*dto.QuickStatsResponse, error)
	Coaches(ctx context.Context, userID string) ([]dto.CoachSummaryResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	now    clock.Clock
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, now clock.Clock, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, now: now, logger: logger}
}

// ────────────────────── TodayWorkout ──────────────────────

func (s *dashboardService) TodayWorkout(ctx context.Context, userID string) (*dto.TodayWorkoutResponse, error) {
	now := s.now()
	today := clock.TodayWindow(now)
	dayOfWeek := clock.Weekday(today.Start)

	resp := &dto.TodayWorkoutResponse{
		Date:      formatDate(today.Start),
		DayOfWeek: dayOfWeek,
		Workouts:  []dto.WorkoutSummaryResponse{},
	}

	plan, err := s.currentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		resp.PlanID, resp.PlanName = &plan.PlanID, &plan.Name
		resp.Workouts = workoutsForDay(plan, dayOfWeek)
	}

	resp.CompletedToday, err = s.repo.Session.CountCompleted(ctx, userID, &today.Start, &today.End)
	if err != nil {
		return nil, storeError(s.logger, "统计今日训练失败", err, nil, zap.String("user_id", userID))
	}
	return resp, nil
}

// ────────────────────── WeekPlan ──────────────────────

func (s *dashboardService) WeekPlan(ctx context.Context, userID string) (*dto.WeekPlanResponse, error) {
	now := s.now()
	week := clock.WeekWindow(now)
	today := clock.DateOf(now)

	plan, err := s.currentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.WeekPlanResponse{WeekStart: formatDate(week.Start)}
	if plan != nil {
		resp.PlanID, resp.PlanName = &plan.PlanID, &plan.Name
	}
	for i := 0; i < 7; i++ {
		date := clock.AddDays(week.Start, i)
		day := dto.WeekPlanDay{
			DayOfWeek: i,
			Date:      formatDate(date),
			IsToday:   date.Equal(today),
			Workouts:  []dto.WorkoutSummaryResponse{},
		}
		if plan != nil {
			day.Workouts = workoutsForDay(plan, i)
		}
		resp.Days = append(resp.Days, day)
	}
	return resp, nil
}

// ────────────────────── QuickStats ──────────────────────

func (s *dashboardService) QuickStats(ctx context.Context, userID string) (*dto.QuickStatsResponse, error) {
	now := s.now()
	week := clock.WeekWindow(now)
	today := clock.TodayWindow(now)

	var stats dto.QuickStatsResponse
	var err error
	if stats.SessionsThisWeek, err = s.repo.Session.CountCompleted(ctx, userID, &week.Start, &week.End); err != nil {
		return nil, storeError(s.logger, "统计本周训练失败", err, nil, zap.String("user_id", userID))
	}
	if stats.CompletedToday, err = s.repo.Session.CountCompleted(ctx, userID, &today.Start, &today.End); err != nil {
		return nil, storeError(s.logger, "统计今日训练失败", err, nil, zap.String("user_id", userID))
	}
	if stats.TotalSessions, err = s.repo.Session.CountCompleted(ctx, userID, nil, nil); err != nil {
		return nil, storeError(s.logger, "统计训练总数失败", err, nil, zap.String("user_id", userID))
	}

	completed, err := s.repo.Session.ListCompletedTimes(ctx, userID, nil, &today.End)
	if err != nil {
		return nil, storeError(s.logger, "查询训练日期失败", err, nil, zap.String("user_id", userID))
	}
	stats.StreakDays = streakEndingOn(today.Start, completed)
	return &stats, nil
}

// ────────────────────── Coaches ──────────────────────

func (s *dashboardService) Coaches(ctx context.Context, userID string) ([]dto.CoachSummaryResponse, error) {
	coaches, err := s.repo.CoachRoster.ListCoachesOfUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "查询教练失败", err, nil, zap.String("user_id", userID))
	}

	result := make([]dto.CoachSummaryResponse, 0, len(coaches))
	for _, c := range coaches {
		result = append(result, dto.CoachSummaryResponse{ID: c.UserID, Name: c.Name, Email: c.Email})
	}
	sort.SliceStable(result, func(i, j int) bool { return lowerLess(result[i].Name, result[j].Name) })
	return result, nil
}

// ────────────────────── 内部辅助 ──────────────────────

// currentPlan 当前生效且未归档的计划，没有时返回 nil
func (s *dashboardService) currentPlan(ctx context.Context, userID string) (*model.WorkoutPlan, error) {
	a, err := s.repo.Assignment.GetCurrentActive(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeError(s.logger, "查询当前计划失败", err, nil, zap.String("user_id", userID))
	}
	return a.Plan, nil
}

func workoutsForDay(plan *model.WorkoutPlan, dayOfWeek int) []dto.WorkoutSummaryResponse {
	for _, d := range plan.Days {
		if d.DayOfWeek == dayOfWeek {
			return toWorkoutSummaries(d.Workouts)
		}
	}
	return []dto.WorkoutSummaryResponse{}
}

// streakEndingOn 截至 today 的连续训练天数，今天没有训练则为 0
func streakEndingOn(today time.Time, completed []time.Time) int {
	days := make(map[time.Time]bool, len(completed))
	for _, t := range completed {
		days[clock.DateOf(t)] = true
	}
	streak := 0
	for d := today; days[d]; d = clock.AddDays(d, -1) {
		streak++
	}
	return streak
}
