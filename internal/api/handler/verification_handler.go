package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// VerificationHandler 签到码 HTTP 处理器
type VerificationHandler struct {
	verificationSvc service.VerificationService
}

// NewVerificationHandler 创建 VerificationHandler
func NewVerificationHandler(verificationSvc service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationSvc: verificationSvc}
}

// RequestClockIn 学生申请签到，返回签到码
// POST /api/v1/shifts/:id/clock-in
func (h *VerificationHandler) RequestClockIn(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.verificationSvc.RequestClockIn(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// CheckStatus 轮询签到码是否已被安保确认
// GET /api/v1/shifts/:id/clock-in/status
func (h *VerificationHandler) CheckStatus(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.verificationSvc.CheckVerificationStatus(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// CodeQR 当前签到码的二维码
// GET /api/v1/shifts/:id/clock-in/qr
func (h *VerificationHandler) CodeQR(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	png, err := h.verificationSvc.GetCodeQR(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// ConfirmCode 安保确认签到码
// POST /api/v1/verification/confirm
func (h *VerificationHandler) ConfirmCode(c *gin.Context) {
	var req dto.ConfirmCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	guardID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.verificationSvc.ConfirmCode(c.Request.Context(), req.Code, guardID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, result)
}

// ListPendingCodes 安保查看班次待确认的签到码
// GET /api/v1/shifts/:id/verification-codes
func (h *VerificationHandler) ListPendingCodes(c *gin.Context) {
	guardID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.verificationSvc.ListPendingCodes(c.Request.Context(), c.Param("id"), guardID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}
