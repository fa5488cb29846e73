package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 审计字段：创建/更新时间与操作人
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SetCreator 记录创建人，同时作为首个更新人；空 actorID（系统/命令行操作）不写入
func (b *BaseModel) SetCreator(actorID string) {
	if actorID == "" {
		return
	}
	b.CreatedBy = &actorID
	b.UpdatedBy = &actorID
}

// SetUpdater 记录最近一次修改人
func (b *BaseModel) SetUpdater(actorID string) {
	if actorID == "" {
		return
	}
	b.UpdatedBy = &actorID
}

// SoftDeleteModel 账号、项目等需要保留历史的实体
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"    json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 班次、项目等被并发修改的实体，每次条件更新 version+1
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}
