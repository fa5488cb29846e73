package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// AttendanceHandler 考勤 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// ClockOut 学生签退
// POST /api/v1/shifts/:id/clock-out
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.ClockOut(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkAttendance 组长/管理员标记出勤状态
// PUT /api/v1/shifts/:id/attendance/:studentId
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	err := h.attendanceSvc.MarkAttendance(c.Request.Context(), c.Param("id"), c.Param("studentId"), req.Status, callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, dto.ActionResult{Success: true})
}

// GetShiftAttendance 班次考勤名单
// GET /api/v1/shifts/:id/attendance
func (h *AttendanceHandler) GetShiftAttendance(c *gin.Context) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.GetShiftAttendance(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// GetStudentHours 学生工时汇总；学生只能查自己
// GET /api/v1/students/:id/hours
func (h *AttendanceHandler) GetStudentHours(c *gin.Context) {
	var req dto.StudentHoursRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	studentID, ok := mustBeSelfOrStaff(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.GetStudentHours(c.Request.Context(), studentID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// mustBeSelfOrStaff 路径 :id 为本人，或调用方为管理员/组长
func mustBeSelfOrStaff(c *gin.Context) (string, bool) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return "", false
	}
	target := c.Param("id")
	if target != callerID && role != model.RoleAdmin && role != model.RoleLeader {
		handleError(c, service.ErrForbidden)
		return "", false
	}
	return target, true
}
