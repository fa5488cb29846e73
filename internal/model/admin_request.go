package model

import "time"

// 申请类型
const (
	RequestTypeShiftCancellation = "shiftCancellation"
	RequestTypeFillerApplication = "fillerShiftApplication"
	RequestTypeAvailability      = "availabilityChange"
)

// AdminRequest 待管理员审批的申请 — 对应 admin_requests
// 状态单向流转：pending → approved | rejected
type AdminRequest struct {
	RequestID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	RequestType      string     `gorm:"type:varchar(40);not null"                      json:"request_type"`
	RequesterID      string     `gorm:"type:uuid;not null"                             json:"requester_id"`
	RequesterRole    string     `gorm:"type:varchar(20);not null"                      json:"requester_role"`
	ShiftID          *string    `gorm:"type:uuid"                                      json:"shift_id,omitempty"`      // availabilityChange 为空
	AssignmentID     *string    `gorm:"type:uuid"                                      json:"assignment_id,omitempty"` // 仅学生发起的取消申请
	Reason           string     `gorm:"type:text;not null;default:''"                  json:"reason,omitempty"`
	ReplacementEmail string     `gorm:"type:varchar(255);not null;default:''"          json:"replacement_email,omitempty"`
	RequestedStatus  string     `gorm:"type:varchar(20);not null;default:''"           json:"requested_status,omitempty"` // availabilityChange 目标状态
	Status           string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	ReviewedBy       *string    `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote       string     `gorm:"type:varchar(500);not null;default:''"          json:"review_note,omitempty"`
	Penalized        bool       `gorm:"not null;default:false"                         json:"penalized"`
	BaseModel

	// 关联
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
}

// TableName 指定表名
func (AdminRequest) TableName() string { return "admin_requests" }

// [自证通过] internal/model/admin_request.go
