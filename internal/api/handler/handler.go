package handler

import "fitcoach/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Workout    *WorkoutHandler
	Plan       *PlanHandler
	Assignment *AssignmentHandler
	Session    *SessionHandler
	Progress   *ProgressHandler
	Dashboard  *DashboardHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Workout:    NewWorkoutHandler(svc.Workout),
		Plan:       NewPlanHandler(svc.Plan),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Session:    NewSessionHandler(svc.Session),
		Progress:   NewProgressHandler(svc.Progress),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
		Export:     NewExportHandler(svc.Export),
	}
}
