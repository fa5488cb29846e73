package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// ScoringHandler 学生评分 HTTP 处理器
type ScoringHandler struct {
	scoringSvc service.ScoringService
}

// NewScoringHandler 创建 ScoringHandler
func NewScoringHandler(scoringSvc service.ScoringService) *ScoringHandler {
	return &ScoringHandler{scoringSvc: scoringSvc}
}

// GetStudentScore 学生当前评分与守时分
// GET /api/v1/students/:id/score
func (h *ScoringHandler) GetStudentScore(c *gin.Context) {
	studentID, ok := mustBeSelfOrStaff(c)
	if !ok {
		return
	}

	score, err := h.scoringSvc.GetStudentScore(c.Request.Context(), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, score)
}

// SubmitRating 组长为班次学生打分
// POST /api/v1/shifts/:id/ratings
func (h *ScoringHandler) SubmitRating(c *gin.Context) {
	var req dto.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	leaderID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scoringSvc.SubmitRating(c.Request.Context(), c.Param("id"), leaderID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, result)
}

// SetAvailability 管理员直接设置学生可用状态
// PUT /api/v1/students/:id/availability
func (h *ScoringHandler) SetAvailability(c *gin.Context) {
	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	score, err := h.scoringSvc.SetAvailability(c.Request.Context(), c.Param("id"), req.Status, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, score)
}
