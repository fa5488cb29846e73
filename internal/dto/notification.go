package dto

// NotificationListRequest 站内通知查询参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 站内通知
type NotificationResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	IsRead      bool    `json:"is_read"`
	RelatedType *string `json:"related_type,omitempty"`
	RelatedID   *string `json:"related_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// NotificationPage 通知分页结果，附带未读数供角标显示
type NotificationPage struct {
	List        []NotificationResponse `json:"list"`
	Total       int64                  `json:"total"`
	UnreadCount int64                  `json:"unread_count"`
	Page        int                    `json:"page"`
	PageSize    int                    `json:"page_size"`
}
