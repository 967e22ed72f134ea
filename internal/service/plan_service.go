package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
)

// ── 计划模块业务错误 ──

var (
	ErrPlanDateRange      = pkgerrors.InvalidState("start_date must be on or before end_date.")
	ErrPlanDuplicateDay   = pkgerrors.InvalidState("Each day_of_week may appear only once per plan.")
	ErrPlanArchivedEdit   = pkgerrors.InvalidState("Archived plans cannot be edited.")
	ErrWorkoutNotFound    = pkgerrors.NotFound("Workout not found.")
	ErrPlanWorkoutArchive = pkgerrors.InvalidState("Archived workouts cannot be added to plans.")
)

// PlanService 教练的训练计划管理
type PlanService interface {
	List(ctx context.Context, coachID string, req *dto.PlanListRequest) ([]dto.PlanListItemResponse, int64, error)
	Get(ctx context.Context, coachID, planID string) (*dto.PlanDetailResponse, error)
	Create(ctx context.Context, coachID string, req *dto.CreatePlanRequest) (*dto.PlanDetailResponse, error)
	Update(ctx context.Context, coachID, planID string, req *dto.UpdatePlanRequest) (*dto.PlanDetailResponse, error)
	Archive(ctx context.Context, coachID, planID string) (*dto.PlanDetailResponse, error)
	Unarchive(ctx context.Context, coachID, planID string) (*dto.PlanDetailResponse, error)
}

type planService struct {
	repo   *repository.Repository
	now    clock.Clock
	logger *zap.Logger
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(repo *repository.Repository, now clock.Clock, logger *zap.Logger) PlanService {
	return &planService{repo: repo, now: now, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *planService) List(ctx context.Context, coachID string, req *dto.PlanListRequest) ([]dto.PlanListItemResponse, int64, error) {
	filter := repository.PlanFilter{
		CoachID:    coachID,
		IsArchived: req.IsArchived,
		Search:     req.Search,
	}
	plans, total, err := s.repo.Plan.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, storeError(s.logger, "列出计划失败", err, nil, zap.String("coach_id", coachID))
	}

	result := make([]dto.PlanListItemResponse, 0, len(plans))
	for i := range plans {
		result = append(result, toPlanListItem(&plans[i]))
	}
	return result, total, nil
}

// ────────────────────── Get ──────────────────────

func (s *planService) Get(ctx context.Context, coachID, planID string) (*dto.PlanDetailResponse, error) {
	plan, err := s.getOwned(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	return toPlanDetail(plan), nil
}

// ────────────────────── Create ──────────────────────

func (s *planService) Create(ctx context.Context, coachID string, req *dto.CreatePlanRequest) (*dto.PlanDetailResponse, error) {
	start, end, err := parsePlanRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	days, err := s.buildDays(ctx, req.Days)
	if err != nil {
		return nil, err
	}

	now := s.now()
	plan := &model.WorkoutPlan{
		PlanID:    uuid.NewString(),
		Name:      req.Name,
		CoachID:   coachID,
		StartDate: datatypes.Date(start),
		EndDate:   datatypes.Date(end),
	}
	plan.CreatedAt, plan.UpdatedAt = now, now
	plan.CreatedBy, plan.UpdatedBy = &coachID, &coachID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Plan.Create(ctx, plan); err != nil {
			return err
		}
		return tx.Plan.ReplaceDays(ctx, plan.PlanID, days)
	})
	if err != nil {
		return nil, storeError(s.logger, "创建计划失败", err, nil, zap.String("coach_id", coachID))
	}

	s.logger.Info("计划已创建", zap.String("plan_id", plan.PlanID), zap.String("coach_id", coachID))
	return s.Get(ctx, coachID, plan.PlanID)
}

// ────────────────────── Update ──────────────────────

func (s *planService) Update(ctx context.Context, coachID, planID string, req *dto.UpdatePlanRequest) (*dto.PlanDetailResponse, error) {
	plan, err := s.getOwned(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsArchived {
		return nil, ErrPlanArchivedEdit
	}

	updates := map[string]interface{}{
		"updated_at": s.now(),
		"updated_by": coachID,
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}

	start, end := time.Time(plan.StartDate), time.Time(plan.EndDate)
	if req.StartDate != nil {
		d, err := parseDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		start = *d
		updates["start_date"] = datatypes.Date(start)
	}
	if req.EndDate != nil {
		d, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, err
		}
		end = *d
		updates["end_date"] = datatypes.Date(end)
	}
	if start.After(end) {
		return nil, ErrPlanDateRange
	}

	var days []model.PlanDay
	if req.Days != nil {
		if days, err = s.buildDays(ctx, *req.Days); err != nil {
			return nil, err
		}
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Plan.UpdateFields(ctx, planID, updates); err != nil {
			return err
		}
		if req.Days != nil {
			return tx.Plan.ReplaceDays(ctx, planID, days)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(s.logger, "更新计划失败", err, nil, zap.String("plan_id", planID))
	}

	return s.Get(ctx, coachID, planID)
}

// ────────────────────── Archive / Unarchive ──────────────────────

func (s *planService) Archive(ctx context.Context, coachID, planID string) (*dto.PlanDetailResponse, error) {
	return s.setArchived(ctx, coachID, planID, true)
}

func (s *planService) Unarchive(ctx context.Context, coachID, planID string) (*dto.PlanDetailResponse, error) {
	return s.setArchived(ctx, coachID, planID, false)
}

func (s *planService) setArchived(ctx context.Context, coachID, planID string, archived bool) (*dto.PlanDetailResponse, error) {
	plan, err := s.getOwned(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsArchived == archived {
		return toPlanDetail(plan), nil
	}

	now := s.now()
	updates := map[string]interface{}{
		"is_archived": archived,
		"archived_at": nil,
		"updated_at":  now,
		"updated_by":  coachID,
	}
	if archived {
		updates["archived_at"] = now
	}
	if err := s.repo.Plan.UpdateFields(ctx, planID, updates); err != nil {
		return nil, storeError(s.logger, "更新计划归档状态失败", err, nil, zap.String("plan_id", planID))
	}

	s.logger.Info("计划归档状态变更", zap.String("plan_id", planID), zap.Bool("archived", archived))
	return s.Get(ctx, coachID, planID)
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *planService) getOwned(ctx context.Context, coachID, planID string) (*model.WorkoutPlan, error) {
	plan, err := s.repo.Plan.GetByIDForCoach(ctx, planID, coachID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, storeError(s.logger, "查询计划失败", err, nil, zap.String("plan_id", planID))
	}
	return plan, nil
}

// buildDays 校验计划日并解析动作，结果按 day_of_week 升序
func (s *planService) buildDays(ctx context.Context, inputs []dto.PlanDayInput) ([]model.PlanDay, error) {
	seenDay := make(map[int]bool, len(inputs))
	var workoutIDs []string
	for _, in := range inputs {
		if seenDay[in.DayOfWeek] {
			return nil, ErrPlanDuplicateDay
		}
		seenDay[in.DayOfWeek] = true
		workoutIDs = append(workoutIDs, in.WorkoutIDs...)
	}
	workoutIDs = uniqueStrings(workoutIDs)

	workouts, err := s.repo.Workout.ListByIDs(ctx, workoutIDs)
	if err != nil {
		return nil, storeError(s.logger, "查询动作失败", err, nil)
	}
	byID := make(map[string]model.Workout, len(workouts))
	for _, w := range workouts {
		byID[w.WorkoutID] = w
	}

	days := make([]model.PlanDay, 0, len(inputs))
	for _, in := range inputs {
		day := model.PlanDay{PlanDayID: uuid.NewString(), DayOfWeek: in.DayOfWeek}
		for _, id := range uniqueStrings(in.WorkoutIDs) {
			w, ok := byID[id]
			if !ok {
				return nil, ErrWorkoutNotFound
			}
			if w.IsArchived {
				return nil, ErrPlanWorkoutArchive
			}
			day.Workouts = append(day.Workouts, w)
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].DayOfWeek < days[j].DayOfWeek })
	return days, nil
}

func parsePlanRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := parseDate(startValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(endValue)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start == nil || end == nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	if start.After(*end) {
		return time.Time{}, time.Time{}, ErrPlanDateRange
	}
	return *start, *end, nil
}

func toPlanListItem(p *model.WorkoutPlan) dto.PlanListItemResponse {
	return dto.PlanListItemResponse{
		ID:            p.PlanID,
		Name:          p.Name,
		CoachID:       p.CoachID,
		StartDate:     formatPlanDate(p.StartDate),
		EndDate:       formatPlanDate(p.EndDate),
		IsArchived:    p.IsArchived,
		ArchivedAt:    formatTimePtr(p.ArchivedAt),
		TotalDays:     len(p.Days),
		TotalWorkouts: p.ScheduledWorkoutCount(),
		CreatedAt:     formatTime(p.CreatedAt),
		UpdatedAt:     formatTime(p.UpdatedAt),
	}
}

func toPlanDetail(p *model.WorkoutPlan) *dto.PlanDetailResponse {
	days := make([]dto.PlanDayResponse, 0, len(p.Days))
	for _, d := range p.Days {
		days = append(days, dto.PlanDayResponse{
			ID:        d.PlanDayID,
			DayOfWeek: d.DayOfWeek,
			Workouts:  toWorkoutSummaries(d.Workouts),
		})
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].DayOfWeek < days[j].DayOfWeek })
	return &dto.PlanDetailResponse{PlanListItemResponse: toPlanListItem(p), Days: days}
}
