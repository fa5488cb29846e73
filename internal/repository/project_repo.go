package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/purelyricky/avashift-com-sub000/internal/model"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error)
	ListByClient(ctx context.Context, clientID string) ([]model.Project, error)
	// ListByMember 返回用户以 active 成员身份参与的项目
	ListByMember(ctx context.Context, userID string) ([]model.Project, error)
}

// ProjectMemberRepository 项目成员数据访问接口
type ProjectMemberRepository interface {
	Create(ctx context.Context, member *model.ProjectMember) error
	GetByProjectAndUser(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
	// GetActive 仅返回 status=active 的成员关系
	GetActive(ctx context.Context, projectID, userID string) (*model.ProjectMember, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error)
	UpdateStatus(ctx context.Context, membershipID, status, updatedBy string) error
}

// ── Project Repository 实现 ──

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).
		Where("project_id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListByClient(ctx context.Context, clientID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *projectRepo) ListByMember(ctx context.Context, userID string) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN project_members pm ON pm.project_id = projects.project_id").
		Where("pm.user_id = ? AND pm.status = ?", userID, model.MemberActive).
		Order("projects.created_at DESC").
		Find(&projects).Error
	return projects, err
}

// ── ProjectMember Repository 实现 ──

type projectMemberRepo struct {
	db *gorm.DB
}

// NewProjectMemberRepo 创建 ProjectMemberRepository 实例
func NewProjectMemberRepo(db *gorm.DB) ProjectMemberRepository {
	return &projectMemberRepo{db: db}
}

func (r *projectMemberRepo) Create(ctx context.Context, member *model.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *projectMemberRepo) GetByProjectAndUser(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *projectMemberRepo) GetActive(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ? AND status = ?", projectID, userID, model.MemberActive).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *projectMemberRepo) ListByProject(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("member_role ASC, created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *projectMemberRepo) UpdateStatus(ctx context.Context, membershipID, status, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ProjectMember{}).
		Where("membership_id = ?", membershipID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
