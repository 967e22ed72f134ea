package service

import (
	"context"
	"errors"
	"sort"
	"time"

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

// ── 训练课模块业务错误 ──

var (
	ErrWorkoutArchived     = pkgerrors.InvalidState("Archived workouts cannot be used for new sessions.")
	ErrAdhocWithPlan       = pkgerrors.InvalidState("Ad hoc sessions cannot include a plan_id.")
	ErrPlanRequired        = pkgerrors.InvalidState("Assigned and swap sessions require a plan_id.")
	ErrInvalidSessionType  = pkgerrors.InvalidState("Invalid session_type.")
	ErrNoActiveAssignment  = pkgerrors.Forbidden("You do not have an active assignment for this plan.")
	ErrWorkoutNotInPlan    = pkgerrors.InvalidState("Workout is not part of the active assigned plan.")
	ErrSessionNotFound     = pkgerrors.NotFound("Workout session not found.")
	ErrSessionLocked       = pkgerrors.InvalidState("Session edit window has closed.")
	ErrLogsNotInSession    = pkgerrors.NotFound("One or more logs do not belong to this session.")
	ErrLogNotFound         = pkgerrors.NotFound("Exercise log not found for this session.")
	errSessionConflict     = pkgerrors.Conflict("Session changed concurrently. Please retry.")
)

// SessionService 训练课执行
//
// 状态：进行中（completed_at 为空）→ 已完成可编辑（now ≤ completed_at + 窗口）→ 锁定
type SessionService interface {
	Create(ctx context.Context, userID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, userID, sessionID string) (*dto.SessionResponse, error)
	// Update 批量写入训练记录：无 id 的新增，有 id 的整体覆盖
	Update(ctx context.Context, userID, sessionID string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	// Complete 幂等：重复完成返回首次的 completed_at
	Complete(ctx context.Context, userID, sessionID string) (*dto.SessionResponse, error)
	AddLog(ctx context.Context, userID, sessionID string, req *dto.LogInput) (*dto.SessionLogResponse, error)
	// UpdateLog 部分更新：只覆盖请求中出现的字段
	UpdateLog(ctx context.Context, userID, sessionID, logID string, req *dto.UpdateLogRequest) (*dto.SessionLogResponse, error)
}

type sessionService struct {
	repo       *repository.Repository
	publisher  events.Publisher
	editWindow time.Duration
	now        clock.Clock
	logger     *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(
	repo *repository.Repository,
	publisher events.Publisher,
	editWindow time.Duration,
	now clock.Clock,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		repo:       repo,
		publisher:  publisher,
		editWindow: editWindow,
		now:        now,
		logger:     logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *sessionService) Create(ctx context.Context, userID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	workout, err := s.repo.Workout.GetByID(ctx, req.WorkoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeError(s.logger, "查询动作失败", err, nil, zap.String("workout_id", req.WorkoutID))
	}
	if workout.IsArchived {
		return nil, ErrWorkoutArchived
	}

	if !model.ValidSessionType(req.SessionType) {
		return nil, ErrInvalidSessionType
	}
	hasPlan := req.PlanID != nil && *req.PlanID != ""
	if req.SessionType == model.SessionAdhoc && hasPlan {
		return nil, ErrAdhocWithPlan
	}
	if req.SessionType != model.SessionAdhoc && !hasPlan {
		return nil, ErrPlanRequired
	}

	var planID *string
	if hasPlan {
		id := *req.PlanID
		planID = &id

		active, err := s.repo.Assignment.HasActive(ctx, id, userID)
		if err != nil {
			return nil, storeError(s.logger, "查询计划分配失败", err, nil, zap.String("plan_id", id))
		}
		if !active {
			return nil, ErrNoActiveAssignment
		}

		if req.SessionType == model.SessionAssigned {
			inPlan, err := s.repo.Plan.ContainsWorkout(ctx, id, workout.WorkoutID)
			if err != nil {
				return nil, storeError(s.logger, "查询计划动作失败", err, nil, zap.String("plan_id", id))
			}
			if !inPlan {
				return nil, ErrWorkoutNotInPlan
			}
		}
	}

	now := s.now()
	session := &model.WorkoutSession{
		SessionID:   uuid.NewString(),
		UserID:      userID,
		WorkoutID:   workout.WorkoutID,
		PlanID:      planID,
		SessionType: req.SessionType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, storeError(s.logger, "创建训练课失败", err, nil, zap.String("user_id", userID))
	}

	metrics.RecordSessionCreated(session.SessionType)
	session.Workout = workout
	return s.toSessionResponse(session, now), nil
}

// ────────────────────── Get ──────────────────────

func (s *sessionService) Get(ctx context.Context, userID, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, s.repo, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(session, s.now()), nil
}

// ────────────────────── Update ──────────────────────

func (s *sessionService) Update(ctx context.Context, userID, sessionID string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	now := s.now()

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		session, err := s.load(ctx, tx, userID, sessionID)
		if err != nil {
			return err
		}
		if !s.editable(session, now) {
			return ErrSessionLocked
		}

		// 先整体校验，任何一条 id 不属于本训练课都不写入
		existing := make(map[string]bool, len(session.Logs))
		for _, l := range session.Logs {
			existing[l.LogID] = true
		}
		for _, entry := range req.Logs {
			if entry.ID != nil && !existing[*entry.ID] {
				return ErrLogsNotInSession
			}
		}

		for _, entry := range req.Logs {
			log := newLogFromInput(sessionID, &entry.LogInput, now)
			if entry.ID != nil {
				log.LogID = *entry.ID
				if err := tx.Session.UpdateLog(ctx, log); err != nil {
					return err
				}
				continue
			}
			if err := tx.Session.CreateLog(ctx, log); err != nil {
				return err
			}
		}
		return tx.Session.Touch(ctx, sessionID, now)
	})
	if err != nil {
		return nil, passThrough(s.logger, "批量更新训练记录失败", err, errSessionConflict, zap.String("session_id", sessionID))
	}

	return s.Get(ctx, userID, sessionID)
}

// ────────────────────── Complete ──────────────────────

func (s *sessionService) Complete(ctx context.Context, userID, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, s.repo, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CompletedAt != nil {
		return s.toSessionResponse(session, s.now()), nil
	}

	now := s.now()
	if err := s.repo.Session.MarkCompleted(ctx, sessionID, now); err != nil {
		return nil, storeError(s.logger, "完成训练课失败", err, nil, zap.String("session_id", sessionID))
	}

	// 重新读取：并发完成时以先写入的 completed_at 为准
	session, err = s.load(ctx, s.repo, userID, sessionID)
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionCompleted(session.SessionType)
	if err := s.publisher.Publish(ctx, events.Event{
		Type:       events.TypeSessionCompleted,
		Key:        userID,
		OccurredAt: now,
		Payload: map[string]interface{}{
			"session_id":   session.SessionID,
			"user_id":      userID,
			"workout_id":   session.WorkoutID,
			"plan_id":      session.PlanID,
			"session_type": session.SessionType,
			"completed_at": formatTimePtr(session.CompletedAt),
		},
	}); err != nil {
		s.logger.Warn("投递领域事件失败", zap.String("type", events.TypeSessionCompleted), zap.Error(err))
	}

	return s.toSessionResponse(session, now), nil
}

// ────────────────────── AddLog ──────────────────────

func (s *sessionService) AddLog(ctx context.Context, userID, sessionID string, req *dto.LogInput) (*dto.SessionLogResponse, error) {
	session, err := s.load(ctx, s.repo, userID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !s.editable(session, now) {
		return nil, ErrSessionLocked
	}

	log := newLogFromInput(sessionID, req, now)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.CreateLog(ctx, log); err != nil {
			return err
		}
		return tx.Session.Touch(ctx, sessionID, now)
	})
	if err != nil {
		return nil, storeError(s.logger, "新增训练记录失败", err, nil, zap.String("session_id", sessionID))
	}

	resp := toSessionLogResponse(log)
	return &resp, nil
}

// ────────────────────── UpdateLog ──────────────────────

func (s *sessionService) UpdateLog(ctx context.Context, userID, sessionID, logID string, req *dto.UpdateLogRequest) (*dto.SessionLogResponse, error) {
	session, err := s.load(ctx, s.repo, userID, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !s.editable(session, now) {
		return nil, ErrSessionLocked
	}

	var log *model.ExerciseLog
	for i := range session.Logs {
		if session.Logs[i].LogID == logID {
			log = &session.Logs[i]
			break
		}
	}
	if log == nil {
		return nil, ErrLogNotFound
	}

	// 非 nil 覆盖，显式 null 清空，未出现保持不变
	if req.Sets != nil || req.Cleared("sets") {
		log.Sets = req.Sets
	}
	if req.Reps != nil || req.Cleared("reps") {
		log.Reps = req.Reps
	}
	if req.Weight != nil || req.Cleared("weight") {
		log.Weight = req.Weight
	}
	if req.Duration != nil || req.Cleared("duration") {
		log.Duration = req.Duration
	}
	if req.Notes != nil || req.Cleared("notes") {
		log.Notes = req.Notes
	}
	log.UpdatedAt = now

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Session.UpdateLog(ctx, log); err != nil {
			return err
		}
		return tx.Session.Touch(ctx, sessionID, now)
	})
	if err != nil {
		return nil, storeError(s.logger, "更新训练记录失败", err, nil, zap.String("log_id", logID))
	}

	resp := toSessionLogResponse(log)
	return &resp, nil
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *sessionService) load(ctx context.Context, repo *repository.Repository, userID, sessionID string) (*model.WorkoutSession, error) {
	session, err := repo.Session.GetByIDForUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeError(s.logger, "查询训练课失败", err, nil, zap.String("session_id", sessionID))
	}
	return session, nil
}

// editable 边界含等号：恰好 completed_at + 窗口 时仍可编辑
func (s *sessionService) editable(session *model.WorkoutSession, now time.Time) bool {
	if session.CompletedAt == nil {
		return true
	}
	return !now.After(session.CompletedAt.Add(s.editWindow))
}

func newLogFromInput(sessionID string, in *dto.LogInput, now time.Time) *model.ExerciseLog {
	return &model.ExerciseLog{
		LogID:     uuid.NewString(),
		SessionID: sessionID,
		Sets:      in.Sets,
		Reps:      in.Reps,
		Weight:    in.Weight,
		Duration:  in.Duration,
		Notes:     in.Notes,
		LoggedAt:  now,
		UpdatedAt: now,
	}
}

func toSessionLogResponse(l *model.ExerciseLog) dto.SessionLogResponse {
	return dto.SessionLogResponse{
		ID:        l.LogID,
		Sets:      l.Sets,
		Reps:      l.Reps,
		Weight:    l.Weight,
		Duration:  l.Duration,
		Notes:     l.Notes,
		LoggedAt:  formatTime(l.LoggedAt),
		UpdatedAt: formatTime(l.UpdatedAt),
	}
}

func (s *sessionService) toSessionResponse(session *model.WorkoutSession, now time.Time) *dto.SessionResponse {
	logs := append([]model.ExerciseLog(nil), session.Logs...)
	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].LoggedAt.Equal(logs[j].LoggedAt) {
			return logs[i].LoggedAt.Before(logs[j].LoggedAt)
		}
		return logs[i].LogID < logs[j].LogID
	})
	logItems := make([]dto.SessionLogResponse, 0, len(logs))
	for i := range logs {
		logItems = append(logItems, toSessionLogResponse(&logs[i]))
	}

	workout := dto.SessionWorkoutResponse{WorkoutSummaryResponse: toWorkoutSummary(session.Workout)}
	if w := session.Workout; w != nil {
		workout.TargetSets = w.TargetSets
		workout.TargetReps = w.TargetReps
		workout.SuggestedWeight = w.SuggestedWeight
		workout.TargetDuration = w.TargetDuration
	}

	return &dto.SessionResponse{
		ID:          session.SessionID,
		UserID:      session.UserID,
		PlanID:      session.PlanID,
		SessionType: session.SessionType,
		CompletedAt: formatTimePtr(session.CompletedAt),
		IsEditable:  s.editable(session, now),
		CreatedAt:   formatTime(session.CreatedAt),
		UpdatedAt:   formatTime(session.UpdatedAt),
		Workout:     workout,
		Logs:        logItems,
	}
}
