package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fitcoach/backend/config"
	"fitcoach/backend/internal/api/handler"
	"fitcoach/backend/internal/api/middleware"
	"fitcoach/backend/internal/model"
	"fitcoach/backend/pkg/metrics"
)

// Pinger 就绪检查依赖（数据库）
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, authn middleware.Authenticator, db Pinger, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("就绪检查失败", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(authn))
	{
		v1.GET("/me", h.Auth.Me)

		// 用户管理（管理员）
		users := v1.Group("/admin/users", middleware.RoleAuth(model.RoleAdmin))
		{
			users.GET("", h.User.ListUsers)
			users.GET("/overview", h.User.Overview)
			users.POST("", h.User.CreateUser)
			users.GET("/:id", h.User.GetUser)
			users.PUT("/:id", h.User.UpdateUser)
			users.PUT("/:id/role", h.User.UpdateRole)
			users.POST("/:id/deactivate", h.User.Deactivate)
			users.POST("/:id/coaches", h.User.AssignCoaches)
			users.DELETE("/:id/coaches/:coach_id", h.User.RemoveCoach)
		}

		// 动作库：所有角色可读，管理员维护
		anyRole := middleware.RoleAuth(model.RoleAdmin, model.RoleCoach, model.RoleUser)
		adminOnly := middleware.RoleAuth(model.RoleAdmin)
		workouts := v1.Group("/workouts")
		{
			workouts.GET("", anyRole, h.Workout.ListWorkouts)
			workouts.GET("/:id", anyRole, h.Workout.GetWorkout)
			workouts.GET("/:id/alternatives", anyRole, h.Workout.ListAlternatives)
			workouts.POST("", adminOnly, h.Workout.CreateWorkout)
			workouts.PUT("/:id", adminOnly, h.Workout.UpdateWorkout)
			workouts.POST("/:id/archive", adminOnly, h.Workout.ArchiveWorkout)
			workouts.POST("/:id/unarchive", adminOnly, h.Workout.UnarchiveWorkout)
		}
		v1.GET("/muscle-groups", anyRole, h.Workout.ListMuscleGroups)
		v1.POST("/muscle-groups", adminOnly, h.Workout.CreateMuscleGroup)
		v1.GET("/cardio-types", anyRole, h.Workout.ListCardioTypes)

		// 训练计划（教练）
		plans := v1.Group("/coach/plans", middleware.RoleAuth(model.RoleCoach))
		{
			plans.GET("", h.Plan.ListPlans)
			plans.POST("", h.Plan.CreatePlan)
			plans.GET("/:id", h.Plan.GetPlan)
			plans.PATCH("/:id", h.Plan.UpdatePlan)
			plans.POST("/:id/archive", h.Plan.ArchivePlan)
			plans.POST("/:id/unarchive", h.Plan.UnarchivePlan)
			plans.POST("/:id/assign", h.Assignment.AssignPlan)
			plans.GET("/:id/users", h.Assignment.GetPlanUsers)
		}

		// 教练名下用户（教练本人或管理员）
		v1.GET("/coaches/:id/roster", middleware.RoleAuth(model.RoleCoach, model.RoleAdmin), h.Assignment.GetRoster)

		// 以下为用户侧
		member := v1.Group("", middleware.RoleAuth(model.RoleUser))
		{
			assignments := member.Group("/assignments")
			{
				assignments.GET("/pending", h.Assignment.ListPending)
				assignments.POST("/:id/activate", h.Assignment.Activate)
				assignments.POST("/:id/decline", h.Assignment.Decline)
			}

			sessions := member.Group("/sessions")
			{
				sessions.POST("", h.Session.CreateSession)
				sessions.GET("/:id", h.Session.GetSession)
				sessions.PUT("/:id", h.Session.UpdateSession)
				sessions.POST("/:id/complete", h.Session.CompleteSession)
				sessions.POST("/:id/logs", h.Session.AddLog)
				sessions.PATCH("/:id/logs/:log_id", h.Session.UpdateLog)
			}

			progress := member.Group("/progress")
			{
				progress.GET("/sessions", h.Progress.ListSessions)
				progress.GET("/muscle-groups", h.Progress.MuscleGroups)
				progress.GET("/frequency", h.Progress.Frequency)
			}

			dashboard := member.Group("/dashboard")
			{
				dashboard.GET("/today", h.Dashboard.Today)
				dashboard.GET("/week", h.Dashboard.Week)
				dashboard.GET("/stats", h.Dashboard.Stats)
				dashboard.GET("/coaches", h.Dashboard.Coaches)
			}

			member.GET("/export/sessions", h.Export.ExportSessions)
		}
	}

	return r
}
