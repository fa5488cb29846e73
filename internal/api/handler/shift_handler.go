package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// ShiftHandler 班次与分配 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// CreateShift 创建单个班次
// POST /api/v1/shifts
func (h *ShiftHandler) CreateShift(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shift, err := h.shiftSvc.CreateShift(c.Request.Context(), &req, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, shift)
}

// CreateRecurringShifts 按 RRULE 批量创建班次
// POST /api/v1/shifts/recurring
func (h *ShiftHandler) CreateRecurringShifts(c *gin.Context) {
	var req dto.CreateRecurringShiftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.shiftSvc.CreateRecurringShifts(c.Request.Context(), &req, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// GetShift 班次详情
// GET /api/v1/shifts/:id
func (h *ShiftHandler) GetShift(c *gin.Context) {
	shift, err := h.shiftSvc.GetShift(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, shift)
}

// ListProjectShifts 项目班次（可按日期区间过滤）
// GET /api/v1/projects/:id/shifts?from=2025-03-01&to=2025-03-31
func (h *ShiftHandler) ListProjectShifts(c *gin.Context) {
	var req dto.ShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.shiftSvc.ListProjectShifts(c.Request.Context(), c.Param("id"), &req, callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// UpdateShiftStatus 推进班次状态
// PUT /api/v1/shifts/:id/status
func (h *ShiftHandler) UpdateShiftStatus(c *gin.Context) {
	var req dto.UpdateShiftStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	shift, err := h.shiftSvc.UpdateShiftStatus(c.Request.Context(), c.Param("id"), req.Status, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, shift)
}

// ── 分配 ──

// AssignStudent 分配学生
// POST /api/v1/shifts/:id/assignments
func (h *ShiftHandler) AssignStudent(c *gin.Context) {
	var req dto.AssignStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	a, err := h.shiftSvc.AssignStudent(c.Request.Context(), c.Param("id"), req.StudentID, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, a)
}

// ListAssignments 班次分配列表
// GET /api/v1/shifts/:id/assignments
func (h *ShiftHandler) ListAssignments(c *gin.Context) {
	list, err := h.shiftSvc.ListAssignments(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// CancelAssignment 取消分配
// DELETE /api/v1/assignments/:id
func (h *ShiftHandler) CancelAssignment(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.shiftSvc.CancelAssignment(c.Request.Context(), c.Param("id"), adminID); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, dto.ActionResult{Success: true})
}

// ── 学生视角 ──

// ListMyShifts 我的班次
// GET /api/v1/me/shifts
func (h *ShiftHandler) ListMyShifts(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.shiftSvc.ListStudentShifts(c.Request.Context(), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// MyCalendar 我的班次 iCalendar 订阅
// GET /api/v1/me/shifts/calendar.ics
func (h *ShiftHandler) MyCalendar(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.shiftSvc.ExportStudentCalendar(c.Request.Context(), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Attachment(c, "text/calendar; charset=utf-8", "shifts.ics", data)
}
