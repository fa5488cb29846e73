package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/api/handler"
	"github.com/purelyricky/avashift-com-sub000/internal/api/middleware"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/pkg/jwt"
	"github.com/purelyricky/avashift-com-sub000/pkg/metrics"
	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
)

const (
	maxBodyBytes = 1 << 20

	// 签到接口按用户限流
	clockInLimit  = 20
	clockInWindow = time.Minute
	loginLimit    = 10
	loginWindow   = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// db 仅用于健康检查，可以为 nil
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthHandler(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleLeader)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(rdb, loginLimit, loginWindow), h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 账号
			users := authorized.Group("/users", admin)
			{
				users.POST("", h.User.CreateUser)
				users.GET("", h.User.ListUsers)
				users.GET("/:id", h.User.GetUser)
			}

			// 项目与成员（可见范围由 Service 层按角色判定）
			projects := authorized.Group("/projects")
			{
				projects.POST("", admin, h.Project.CreateProject)
				projects.GET("", h.Project.ListProjects)
				projects.GET("/:id", h.Project.GetProject)
				projects.GET("/:id/health", middleware.RoleAuth(model.RoleAdmin, model.RoleClient), h.Project.GetProjectHealth)
				projects.POST("/:id/members", admin, h.Project.AddMember)
				projects.GET("/:id/members", h.Project.ListMembers)
				projects.DELETE("/:id/members/:userId", admin, h.Project.DeactivateMember)
				projects.GET("/:id/shifts", h.Shift.ListProjectShifts)
				projects.GET("/:id/attendance/export", admin, h.Export.ExportProjectAttendance)
			}

			// 班次
			shifts := authorized.Group("/shifts")
			{
				shifts.POST("", admin, h.Shift.CreateShift)
				shifts.POST("/recurring", admin, h.Shift.CreateRecurringShifts)
				shifts.GET("/:id", h.Shift.GetShift)
				shifts.PUT("/:id/status", admin, h.Shift.UpdateShiftStatus)
				shifts.POST("/:id/assignments", admin, h.Shift.AssignStudent)
				shifts.GET("/:id/assignments", staff, h.Shift.ListAssignments)

				// 签到 / 签退（学生）
				student := middleware.RoleAuth(model.RoleStudent)
				clockLimit := middleware.RateLimit(rdb, clockInLimit, clockInWindow)
				shifts.POST("/:id/clock-in", student, clockLimit, h.Verification.RequestClockIn)
				shifts.GET("/:id/clock-in/status", student, h.Verification.CheckStatus)
				shifts.GET("/:id/clock-in/qr", student, h.Verification.CodeQR)
				shifts.POST("/:id/clock-out", student, h.Attendance.ClockOut)

				// 安保
				shifts.GET("/:id/verification-codes", middleware.RoleAuth(model.RoleGuard), h.Verification.ListPendingCodes)

				// 考勤与评分（组长 / 管理员）
				shifts.PUT("/:id/attendance/:studentId", staff, h.Attendance.MarkAttendance)
				shifts.GET("/:id/attendance", staff, h.Attendance.GetShiftAttendance)
				shifts.GET("/:id/attendance/export", staff, h.Export.ExportShiftAttendance)
				shifts.POST("/:id/ratings", middleware.RoleAuth(model.RoleLeader), h.Scoring.SubmitRating)
			}

			authorized.DELETE("/assignments/:id", admin, h.Shift.CancelAssignment)
			authorized.POST("/verification/confirm", middleware.RoleAuth(model.RoleGuard), h.Verification.ConfirmCode)

			// 学生档案
			students := authorized.Group("/students")
			{
				students.GET("/:id/hours", h.Attendance.GetStudentHours)
				students.GET("/:id/score", h.Scoring.GetStudentScore)
				students.PUT("/:id/availability", admin, h.Scoring.SetAvailability)
			}

			// 当前用户
			me := authorized.Group("/me")
			{
				me.GET("/shifts", h.Shift.ListMyShifts)
				me.GET("/shifts/calendar.ics", h.Shift.MyCalendar)
				me.GET("/requests", h.Request.ListMine)
			}

			// 申请
			requests := authorized.Group("/requests")
			{
				requests.POST("/cancellation", middleware.RoleAuth(model.RoleStudent, model.RoleLeader, model.RoleGuard), h.Request.CreateCancellation)
				requests.POST("/filler", middleware.RoleAuth(model.RoleStudent), h.Request.ApplyFiller)
				requests.POST("/availability", middleware.RoleAuth(model.RoleStudent), h.Request.CreateAvailabilityChange)
			}

			// 审批
			review := authorized.Group("/admin/requests", admin)
			{
				review.GET("", h.Review.List)
				review.GET("/stats", h.Review.Stats)
				review.POST("/:id/approve", h.Review.Approve)
				review.POST("/:id/reject", h.Review.Reject)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}

// healthHandler 数据库与 Redis 连通性；Redis 不可用只标记降级
func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "skipped", "redis": "disabled"}
		code := http.StatusOK

		if db != nil {
			status["database"] = "ok"
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				status["status"] = "unavailable"
				status["database"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				status["redis"] = err.Error()
				if code == http.StatusOK {
					status["status"] = "degraded"
				}
			}
		}
		c.JSON(code, status)
	}
}
