package model

import "time"

// VerificationCode 签到码表 — 对应 verification_codes
// 每个 (student, shift) 同一时刻至多一条 active 记录；用过的码不再复用
type VerificationCode struct {
	CodeID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"code_id"`
	Code       string     `gorm:"type:varchar(8);not null"                       json:"code"`
	StudentID  string     `gorm:"type:uuid;not null"                             json:"student_id"`
	ShiftID    string     `gorm:"type:uuid;not null"                             json:"shift_id"`
	Status     string     `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | used | expired
	IsRead     bool       `gorm:"not null;default:false"                         json:"is_read"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy *string    `gorm:"type:uuid"                                      json:"verified_by,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (VerificationCode) TableName() string { return "verification_codes" }

// AttendanceRecord 考勤记录表 — 对应 attendance_records
// 状态由安保/组长断言，不完全由时间戳推导
type AttendanceRecord struct {
	AttendanceID      string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	ShiftID           string     `gorm:"type:uuid;not null"                             json:"shift_id"`
	StudentID         string     `gorm:"type:uuid;not null"                             json:"student_id"`
	ClockInTime       *time.Time `json:"clock_in_time,omitempty"`
	ClockOutTime      *time.Time `json:"clock_out_time,omitempty"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | present | late | absent
	ClockInVerifiedBy *string    `gorm:"type:uuid"                                      json:"clock_in_verified_by,omitempty"`
	MarkedByLeader    *string    `gorm:"type:uuid"                                      json:"marked_by_leader,omitempty"`
	BaseModel

	// 关联
	Shift *Shift `gorm:"foreignKey:ShiftID;references:ShiftID" json:"shift,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// RatingSubmission 组长评分记录 — 对应 rating_submissions
type RatingSubmission struct {
	SubmissionID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"submission_id"`
	ShiftID              string    `gorm:"type:uuid;not null"                             json:"shift_id"`
	StudentID            string    `gorm:"type:uuid;not null"                             json:"student_id"`
	LeaderID             string    `gorm:"type:uuid;not null"                             json:"leader_id"`
	Rating               float64   `gorm:"not null"                                       json:"rating"`
	Punctuality          float64   `gorm:"not null"                                       json:"punctuality"`
	ResultingRating      float64   `gorm:"not null"                                       json:"resulting_rating"`
	ResultingPunctuality float64   `gorm:"not null"                                       json:"resulting_punctuality"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (RatingSubmission) TableName() string { return "rating_submissions" }

// [自证通过] internal/model/attendance.go
