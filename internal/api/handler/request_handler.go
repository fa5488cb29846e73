package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// RequestHandler 申请提交 HTTP 处理器
type RequestHandler struct {
	requestSvc service.RequestService
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(requestSvc service.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// CreateCancellation 班次取消申请（学生/组长/安保）
// POST /api/v1/requests/cancellation
func (h *RequestHandler) CreateCancellation(c *gin.Context) {
	var req dto.CreateCancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.CreateShiftCancellationRequest(c.Request.Context(), requesterID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// ApplyFiller 申请补位班次
// POST /api/v1/requests/filler
func (h *RequestHandler) ApplyFiller(c *gin.Context) {
	var req dto.ApplyFillerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.ApplyForFillerShift(c.Request.Context(), studentID, req.ShiftID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// CreateAvailabilityChange 可用状态变更申请
// POST /api/v1/requests/availability
func (h *RequestHandler) CreateAvailabilityChange(c *gin.Context) {
	var req dto.AvailabilityChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.requestSvc.CreateAvailabilityChangeRequest(c.Request.Context(), studentID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// ListMine 我提交的申请
// GET /api/v1/me/requests
func (h *RequestHandler) ListMine(c *gin.Context) {
	requesterID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.requestSvc.ListMyRequests(c.Request.Context(), requesterID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}
