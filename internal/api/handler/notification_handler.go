package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// NotificationHandler 站内通知 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 我的通知（分页）
// GET /api/v1/notifications?unread_only=true&page=1
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	page, err := h.notificationSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, page)
}

// MarkRead 标记单条已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, dto.ActionResult{Success: true})
}

// MarkAllRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	n, err := h.notificationSvc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}
