package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	pkgerrors "fitcoach/backend/pkg/errors"
	"fitcoach/backend/pkg/events"
	"fitcoach/backend/pkg/metrics"
)

// ── 计划分配模块业务错误 ──

var (
	ErrPlanNotFound          = pkgerrors.NotFound("Plan not found.")
	ErrPlanArchivedAssign    = pkgerrors.InvalidState("Archived plans cannot be assigned.")
	ErrUsersNotOnRoster      = pkgerrors.Forbidden("One or more users are not assigned to this coach.")
	ErrUserNotFound          = pkgerrors.NotFound("User not found.")
	ErrAssignTargetRole      = pkgerrors.InvalidState("Plans can only be assigned to users.")
	ErrAssignTargetInactive  = pkgerrors.InvalidState("Plans cannot be assigned to deactivated users.")
	ErrAssignmentNotFound    = pkgerrors.NotFound("Plan assignment not found.")
	ErrAssignmentNotPending  = pkgerrors.InvalidState("Only pending assignments can be changed.")
	ErrPlanArchivedActivate  = pkgerrors.Conflict("Archived plans cannot be activated.")
	ErrConcurrentActivation  = pkgerrors.Conflict("Another plan was activated at the same time. Please retry.")
	ErrRosterForbidden       = pkgerrors.Forbidden("Coaches can only view their own roster.")
	ErrCoachNotFound         = pkgerrors.NotFound("Coach not found.")
	errAssignmentsConflicted = pkgerrors.Conflict("Plan assignment changed concurrently. Please retry.")
)

const unknownCoachName = "Unknown Coach"

// PlanAssignmentService 计划分配生命周期
//
// 每个用户同一时刻至多一条 active 分配：
//   - 分配、激活与拒绝都在事务内先锁定用户行再读写
//   - 数据库部分唯一索引兜底，并发写入方得到 409
type PlanAssignmentService interface {
	AssignPlanToUsers(ctx context.Context, coachID, planID string, req *dto.AssignPlanRequest) (*dto.AssignPlanResponse, error)
	Activate(ctx context.Context, userID, assignmentID string) (*dto.ActivateAssignmentResponse, error)
	Decline(ctx context.Context, userID, assignmentID string) (*dto.DeclineAssignmentResponse, error)
	GetUserPendingAssignments(ctx context.Context, userID string) (*dto.UserPendingAssignmentsResponse, error)
	GetPlanUsersStatus(ctx context.Context, coachID, planID string) (*dto.PlanUsersResponse, error)
	GetCoachRoster(ctx context.Context, viewer dto.Principal, coachID string) (*dto.CoachRosterResponse, error)
}

type planAssignmentService struct {
	repo       *repository.Repository
	completion CompletionService
	publisher  events.Publisher
	now        clock.Clock
	logger     *zap.Logger
}

// NewPlanAssignmentService 创建 PlanAssignmentService 实例
func NewPlanAssignmentService(
	repo *repository.Repository,
	completion CompletionService,
	publisher events.Publisher,
	now clock.Clock,
	logger *zap.Logger,
) PlanAssignmentService {
	return &planAssignmentService{
		repo:       repo,
		completion: completion,
		publisher:  publisher,
		now:        now,
		logger:     logger,
	}
}

// ────────────────────── AssignPlanToUsers ──────────────────────

func (s *planAssignmentService) AssignPlanToUsers(ctx context.Context, coachID, planID string, req *dto.AssignPlanRequest) (*dto.AssignPlanResponse, error) {
	userIDs := uniqueStrings(req.UserIDs)

	// 1. 计划归属与状态
	plan, err := s.repo.Plan.GetByIDForCoach(ctx, planID, coachID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, storeError(s.logger, "查询计划失败", err, nil, zap.String("plan_id", planID))
	}
	if plan.IsArchived {
		return nil, ErrPlanArchivedAssign
	}

	// 2. 目标用户必须在教练名下
	onRoster, err := s.repo.CoachRoster.FilterRosterUserIDs(ctx, coachID, userIDs)
	if err != nil {
		return nil, storeError(s.logger, "查询教练学员关系失败", err, nil, zap.String("coach_id", coachID))
	}
	if len(onRoster) != len(userIDs) {
		return nil, ErrUsersNotOnRoster
	}

	// 3. 目标用户存在、角色为 user、未停用
	users, err := s.repo.User.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, storeError(s.logger, "查询用户失败", err, nil)
	}
	byID := make(map[string]*model.User, len(users))
	for i := range users {
		byID[users[i].UserID] = &users[i]
	}
	for _, id := range userIDs {
		u, ok := byID[id]
		if !ok {
			return nil, ErrUserNotFound
		}
		if u.Role != model.RoleUser {
			return nil, ErrAssignTargetRole
		}
		if !u.IsActive {
			return nil, ErrAssignTargetInactive
		}
	}

	// 4. 事务内逐个用户加锁后复用或创建
	now := s.now()
	sorted := append([]string(nil), userIDs...)
	sort.Strings(sorted)

	items := make([]dto.AssignmentItemResponse, 0, len(sorted))
	var created []string
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		items = items[:0]
		created = created[:0]
		for _, userID := range sorted {
			if _, err := tx.User.LockByID(ctx, userID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return err
			}

			existing, err := tx.Assignment.FindOpen(ctx, planID, userID)
			if err == nil {
				items = append(items, toAssignmentItem(existing, false))
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			activeCount, err := tx.Assignment.CountActiveByUser(ctx, userID)
			if err != nil {
				return err
			}

			a := &model.PlanAssignment{
				AssignmentID: uuid.NewString(),
				PlanID:       planID,
				UserID:       userID,
				Status:       model.AssignmentPending,
				AssignedAt:   now,
			}
			if activeCount == 0 {
				a.Status = model.AssignmentActive
				a.ActivatedAt = &now
			}
			a.CreatedAt, a.UpdatedAt = now, now
			a.CreatedBy, a.UpdatedBy = &coachID, &coachID

			if err := tx.Assignment.Create(ctx, a); err != nil {
				return err
			}
			items = append(items, toAssignmentItem(a, true))
			created = append(created, a.Status)
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(s.logger, "分配计划失败", err, errAssignmentsConflicted,
			zap.String("plan_id", planID), zap.String("coach_id", coachID))
	}

	for _, status := range created {
		metrics.RecordAssignmentCreated(status)
	}
	s.logger.Info("计划已分配",
		zap.String("plan_id", planID),
		zap.Int("users", len(items)),
		zap.Int("created", len(created)),
	)

	return &dto.AssignPlanResponse{PlanID: planID, Assignments: items}, nil
}

// ────────────────────── Activate ──────────────────────

func (s *planAssignmentService) Activate(ctx context.Context, userID, assignmentID string) (*dto.ActivateAssignmentResponse, error) {
	now := s.now()
	var assignment *model.PlanAssignment
	deactivated := []string{}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 锁定用户行，串行化同一用户的并发激活
		if _, err := tx.User.LockByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}

		a, err := tx.Assignment.GetByIDForUser(ctx, assignmentID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		if a.Status != model.AssignmentPending {
			return ErrAssignmentNotPending
		}
		if a.Plan == nil || a.Plan.IsArchived {
			return ErrPlanArchivedActivate
		}

		actives, err := tx.Assignment.ListActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		deactivated = deactivated[:0]
		for _, other := range actives {
			if other.AssignmentID != a.AssignmentID {
				deactivated = append(deactivated, other.AssignmentID)
			}
		}

		// 先停用旧的再激活，满足部分唯一索引
		if err := tx.Assignment.Deactivate(ctx, deactivated, now); err != nil {
			return err
		}
		if err := tx.Assignment.Activate(ctx, a.AssignmentID, now); err != nil {
			return err
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, passThrough(s.logger, "激活计划分配失败", err, ErrConcurrentActivation,
			zap.String("assignment_id", assignmentID), zap.String("user_id", userID))
	}

	metrics.RecordAssignmentTransition(model.AssignmentActive)
	for range deactivated {
		metrics.RecordAssignmentTransition(model.AssignmentInactive)
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeAssignmentActivated,
		Key:        userID,
		OccurredAt: now,
		Payload: map[string]interface{}{
			"assignment_id":              assignment.AssignmentID,
			"plan_id":                    assignment.PlanID,
			"user_id":                    userID,
			"deactivated_assignment_ids": deactivated,
		},
	})

	return &dto.ActivateAssignmentResponse{
		AssignmentID:             assignment.AssignmentID,
		Status:                   model.AssignmentActive,
		ActivatedAt:              formatTime(now),
		DeactivatedAssignmentIDs: deactivated,
	}, nil
}

// ────────────────────── Decline ──────────────────────

func (s *planAssignmentService) Decline(ctx context.Context, userID, assignmentID string) (*dto.DeclineAssignmentResponse, error) {
	now := s.now()
	var a *model.PlanAssignment

	// 与 Activate 共用用户行锁，避免覆盖并发提交的激活
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.User.LockByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}

		found, err := tx.Assignment.GetByIDForUser(ctx, assignmentID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		if found.Status != model.AssignmentPending {
			return ErrAssignmentNotPending
		}

		affected, err := tx.Assignment.DeclinePending(ctx, found.AssignmentID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrAssignmentNotPending
		}
		a = found
		return nil
	})
	if err != nil {
		return nil, passThrough(s.logger, "拒绝计划分配失败", err, nil,
			zap.String("assignment_id", assignmentID), zap.String("user_id", userID))
	}

	metrics.RecordAssignmentTransition(model.AssignmentInactive)
	s.publish(ctx, events.Event{
		Type:       events.TypeAssignmentDeclined,
		Key:        userID,
		OccurredAt: now,
		Payload: map[string]interface{}{
			"assignment_id": a.AssignmentID,
			"plan_id":       a.PlanID,
			"user_id":       userID,
		},
	})

	return &dto.DeclineAssignmentResponse{
		AssignmentID:  a.AssignmentID,
		Status:        model.AssignmentInactive,
		DeactivatedAt: formatTime(now),
	}, nil
}

// ────────────────────── GetUserPendingAssignments ──────────────────────

func (s *planAssignmentService) GetUserPendingAssignments(ctx context.Context, userID string) (*dto.UserPendingAssignmentsResponse, error) {
	resp := &dto.UserPendingAssignmentsResponse{Pending: []dto.PendingAssignmentItem{}}

	active, err := s.repo.Assignment.GetCurrentActive(ctx, userID)
	switch {
	case err == nil:
		resp.ActivePlan = toActivePlanSummary(active)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, storeError(s.logger, "查询当前计划失败", err, nil, zap.String("user_id", userID))
	}

	pending, err := s.repo.Assignment.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "查询待处理计划失败", err, nil, zap.String("user_id", userID))
	}
	for i := range pending {
		resp.Pending = append(resp.Pending, toPendingItem(&pending[i]))
	}

	return resp, nil
}

// ────────────────────── GetPlanUsersStatus ──────────────────────

func (s *planAssignmentService) GetPlanUsersStatus(ctx context.Context, coachID, planID string) (*dto.PlanUsersResponse, error) {
	plan, err := s.repo.Plan.GetByIDForCoach(ctx, planID, coachID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, storeError(s.logger, "查询计划失败", err, nil, zap.String("plan_id", planID))
	}

	assignments, err := s.repo.Assignment.ListByPlan(ctx, planID)
	if err != nil {
		return nil, storeError(s.logger, "查询计划分配失败", err, nil, zap.String("plan_id", planID))
	}

	// assigned_at 倒序，每个用户只保留第一条
	latest := firstPerUser(assignments)

	users := make([]dto.PlanUserStatusResponse, 0, len(latest))
	for _, a := range latest {
		percent, err := s.completion.WeeklyCompletionPercent(ctx, a.UserID, plan)
		if err != nil {
			return nil, err
		}
		item := dto.PlanUserStatusResponse{
			UserID:                  a.UserID,
			Status:                  a.Status,
			AssignedAt:              formatTime(a.AssignedAt),
			ActivatedAt:             formatTimePtr(a.ActivatedAt),
			DeactivatedAt:           formatTimePtr(a.DeactivatedAt),
			WeeklyCompletionPercent: percent,
		}
		if a.User != nil {
			item.UserName = a.User.Name
			item.UserEmail = a.User.Email
		}
		users = append(users, item)
	}
	sort.SliceStable(users, func(i, j int) bool {
		ni, nj := strings.ToLower(users[i].UserName), strings.ToLower(users[j].UserName)
		if ni != nj {
			return ni < nj
		}
		return users[i].UserID < users[j].UserID
	})

	return &dto.PlanUsersResponse{PlanID: planID, Users: users}, nil
}

// ────────────────────── GetCoachRoster ──────────────────────

func (s *planAssignmentService) GetCoachRoster(ctx context.Context, viewer dto.Principal, coachID string) (*dto.CoachRosterResponse, error) {
	if viewer.Role == model.RoleCoach && viewer.UserID != coachID {
		return nil, ErrRosterForbidden
	}

	coach, err := s.repo.User.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoachNotFound
		}
		return nil, storeError(s.logger, "查询教练失败", err, nil, zap.String("coach_id", coachID))
	}
	if coach.Role != model.RoleCoach {
		return nil, ErrCoachNotFound
	}

	users, err := s.repo.CoachRoster.ListRosterUsers(ctx, coachID)
	if err != nil {
		return nil, storeError(s.logger, "查询教练学员失败", err, nil, zap.String("coach_id", coachID))
	}
	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.UserID)
	}

	actives, err := s.repo.Assignment.ListActiveByUsers(ctx, userIDs)
	if err != nil {
		return nil, storeError(s.logger, "查询学员当前计划失败", err, nil, zap.String("coach_id", coachID))
	}
	activeByUser := make(map[string]model.PlanAssignment, len(actives))
	for _, a := range firstPerUser(actives) {
		activeByUser[a.UserID] = a
	}

	pendingCounts, err := s.repo.Assignment.CountPendingByUsers(ctx, userIDs)
	if err != nil {
		return nil, storeError(s.logger, "统计待处理计划失败", err, nil, zap.String("coach_id", coachID))
	}

	// 同一 (用户, 计划) 的完成率在一次请求内只计算一次
	memo := make(map[string]float64)
	items := make([]dto.CoachRosterUserResponse, 0, len(users))
	for _, u := range users {
		item := dto.CoachRosterUserResponse{
			UserID:           u.UserID,
			UserName:         u.Name,
			UserEmail:        u.Email,
			PendingPlanCount: pendingCounts[u.UserID],
		}
		if a, ok := activeByUser[u.UserID]; ok && a.Plan != nil {
			planID, planName, status := a.PlanID, a.Plan.Name, a.Status
			item.ActivePlanID = &planID
			item.ActivePlanName = &planName
			item.ActivePlanStatus = &status

			key := u.UserID + "|" + a.PlanID
			percent, ok := memo[key]
			if !ok {
				percent, err = s.completion.WeeklyCompletionPercent(ctx, u.UserID, a.Plan)
				if err != nil {
					return nil, err
				}
				memo[key] = percent
			}
			item.WeeklyCompletionPercent = percent
		}
		items = append(items, item)
	}

	return &dto.CoachRosterResponse{CoachID: coachID, Users: items}, nil
}

// ────────────────────── 内部辅助 ──────────────────────

// publish 事务提交后投递事件，失败只记日志
func (s *planAssignmentService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("投递领域事件失败", zap.String("type", event.Type), zap.Error(err))
	}
}

// firstPerUser 按输入顺序折叠，每个用户保留第一条
func firstPerUser(assignments []model.PlanAssignment) []model.PlanAssignment {
	seen := make(map[string]bool, len(assignments))
	result := make([]model.PlanAssignment, 0, len(assignments))
	for _, a := range assignments {
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		result = append(result, a)
	}
	return result
}

// uniqueStrings 去重并保持首次出现的顺序
func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

func toAssignmentItem(a *model.PlanAssignment, created bool) dto.AssignmentItemResponse {
	return dto.AssignmentItemResponse{
		AssignmentID: a.AssignmentID,
		UserID:       a.UserID,
		Status:       a.Status,
		Created:      created,
		AssignedAt:   formatTime(a.AssignedAt),
		ActivatedAt:  formatTimePtr(a.ActivatedAt),
	}
}

func coachName(plan *model.WorkoutPlan) string {
	if plan != nil && plan.Coach != nil && plan.Coach.Name != "" {
		return plan.Coach.Name
	}
	return unknownCoachName
}

func toActivePlanSummary(a *model.PlanAssignment) *dto.ActivePlanSummary {
	if a.Plan == nil {
		return nil
	}
	return &dto.ActivePlanSummary{
		AssignmentID: a.AssignmentID,
		PlanID:       a.PlanID,
		PlanName:     a.Plan.Name,
		CoachName:    coachName(a.Plan),
		StartDate:    formatPlanDate(a.Plan.StartDate),
		EndDate:      formatPlanDate(a.Plan.EndDate),
		ActivatedAt:  formatTimePtr(a.ActivatedAt),
	}
}

func toPendingItem(a *model.PlanAssignment) dto.PendingAssignmentItem {
	item := dto.PendingAssignmentItem{
		AssignmentID: a.AssignmentID,
		PlanID:       a.PlanID,
		CoachName:    coachName(a.Plan),
		AssignedAt:   formatTime(a.AssignedAt),
	}
	if a.Plan != nil {
		item.PlanName = a.Plan.Name
		item.CoachID = a.Plan.CoachID
		item.StartDate = formatPlanDate(a.Plan.StartDate)
		item.EndDate = formatPlanDate(a.Plan.EndDate)
		item.TotalDays = len(a.Plan.Days)
		item.TotalWorkouts = a.Plan.ScheduledWorkoutCount()
		item.PlanIsArchived = a.Plan.IsArchived
	}
	return item
}
