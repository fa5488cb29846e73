package handler

import "github.com/purelyricky/avashift-com-sub000/internal/service"

// Handler 聚合所有 HTTP Handler
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Project      *ProjectHandler
	Shift        *ShiftHandler
	Verification *VerificationHandler
	Attendance   *AttendanceHandler
	Scoring      *ScoringHandler
	Request      *RequestHandler
	Review       *ReviewHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// New 创建 Handler 聚合实例
func New(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Project:      NewProjectHandler(svc.Project),
		Shift:        NewShiftHandler(svc.Shift),
		Verification: NewVerificationHandler(svc.Verification),
		Attendance:   NewAttendanceHandler(svc.Attendance),
		Scoring:      NewScoringHandler(svc.Scoring),
		Request:      NewRequestHandler(svc.Request),
		Review:       NewReviewHandler(svc.Review),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}
