package service

import (
	"go.uber.org/zap"

	"fitcoach/backend/config"
	"fitcoach/backend/internal/repository"
	"fitcoach/backend/pkg/clock"
	"fitcoach/backend/pkg/events"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Completion CompletionService
	Workout    WorkoutService
	Plan       PlanService
	Assignment PlanAssignmentService
	Session    SessionService
	Progress   ProgressService
	Dashboard  DashboardService
	Export     ExportService
}

// Deps 外部协作方
type Deps struct {
	Verifier  TokenVerifier
	Provider  IdentityProvider
	Publisher events.Publisher
	Clock     clock.Clock
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	now := deps.Clock
	if now == nil {
		now = clock.System()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	completion := NewCompletionService(repo, now, logger)

	return &Service{
		Auth:       NewAuthService(repo, deps.Verifier, logger),
		User:       NewUserService(repo, deps.Provider, cfg.Coaching.MaxUsersPerCoach, now, logger),
		Completion: completion,
		Workout:    NewWorkoutService(repo, now, logger),
		Plan:       NewPlanService(repo, now, logger),
		Assignment: NewPlanAssignmentService(repo, completion, publisher, now, logger),
		Session:    NewSessionService(repo, publisher, cfg.Coaching.SessionEditWindow, now, logger),
		Progress:   NewProgressService(repo, now, logger),
		Dashboard:  NewDashboardService(repo, now, logger),
		Export:     NewExportService(repo, logger),
	}
}
