package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportShiftAttendance 导出班次考勤表
// GET /api/v1/shifts/:id/attendance/export
func (h *ExportHandler) ExportShiftAttendance(c *gin.Context) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportShiftAttendance(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Attachment(c, xlsxContentType, filename, buf.Bytes())
}

// ExportProjectAttendance 导出项目考勤汇总
// GET /api/v1/projects/:id/attendance/export?from=2025-03-01&to=2025-03-31
func (h *ExportHandler) ExportProjectAttendance(c *gin.Context) {
	var req dto.ShiftListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportProjectAttendance(c.Request.Context(), c.Param("id"), &req, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Attachment(c, xlsxContentType, filename, buf.Bytes())
}
