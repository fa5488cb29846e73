// Package seed 从 YAML 文件批量导入账号、项目与成员
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
)

// File 种子文件结构
type File struct {
	Users    []User    `yaml:"users"    validate:"dive"`
	Projects []Project `yaml:"projects" validate:"dive"`
}

// User 待创建账号；已存在的邮箱跳过
type User struct {
	Name     string `yaml:"name"     validate:"required,min=2,max=50"`
	Email    string `yaml:"email"    validate:"required,email"`
	Password string `yaml:"password" validate:"required,min=8,max=64"`
	Role     string `yaml:"role"     validate:"required,oneof=admin leader guard student client"`
}

// Project 待创建项目，负责人、客户与成员均以邮箱引用
type Project struct {
	Name        string   `yaml:"name"        validate:"required,min=2,max=100"`
	Description string   `yaml:"description" validate:"max=1000"`
	Owner       string   `yaml:"owner"       validate:"required,email"`
	Client      string   `yaml:"client"      validate:"omitempty,email"`
	Members     []string `yaml:"members"     validate:"dive,email"`
}

// Result 导入统计
type Result struct {
	UsersCreated    int
	UsersSkipped    int
	ProjectsCreated int
	ProjectsSkipped int
	MembersAdded    int
}

// Parse 解析并校验种子文件
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("种子文件校验失败: %w", err)
	}
	return &f, nil
}

// Loader 通过业务层写入种子数据，复用账号与成员的全部校验规则
type Loader struct {
	users     service.UserService
	projects  service.ProjectService
	directory service.DirectoryService
	logger    *zap.Logger
}

// NewLoader 创建 Loader
func NewLoader(svc *service.Service, logger *zap.Logger) *Loader {
	return &Loader{
		users:     svc.User,
		projects:  svc.Project,
		directory: svc.Directory,
		logger:    logger,
	}
}

// Apply 按文件顺序导入：先账号，后项目与成员。可重复执行
func (l *Loader) Apply(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}

	// 1. 账号
	for _, u := range f.Users {
		_, err := l.users.CreateUser(ctx, &dto.CreateUserRequest{
			Name:     u.Name,
			Email:    u.Email,
			Password: u.Password,
			Role:     u.Role,
		}, "")
		switch {
		case err == nil:
			res.UsersCreated++
		case errors.Is(err, service.ErrEmailExists):
			res.UsersSkipped++
		default:
			return res, fmt.Errorf("创建账号 %s 失败: %w", u.Email, err)
		}
	}

	// 2. 项目与成员
	for _, p := range f.Projects {
		if err := l.applyProject(ctx, p, res); err != nil {
			return res, fmt.Errorf("导入项目 %s 失败: %w", p.Name, err)
		}
	}
	return res, nil
}

func (l *Loader) applyProject(ctx context.Context, p Project, res *Result) error {
	owner, err := l.directory.ResolveByEmail(ctx, p.Owner)
	if err != nil {
		return fmt.Errorf("负责人 %s: %w", p.Owner, err)
	}
	if owner.Role != model.RoleAdmin {
		return fmt.Errorf("负责人 %s 不是管理员", p.Owner)
	}

	projectID, err := l.findOwnedProject(ctx, owner.ID, p.Name)
	if err != nil {
		return err
	}
	if projectID != "" {
		res.ProjectsSkipped++
	} else {
		req := &dto.CreateProjectRequest{Name: p.Name, Description: p.Description}
		if p.Client != "" {
			client, err := l.directory.ResolveByEmail(ctx, p.Client)
			if err != nil {
				return fmt.Errorf("客户 %s: %w", p.Client, err)
			}
			req.ClientID = &client.ID
		}
		created, err := l.projects.CreateProject(ctx, req, owner.ID)
		if err != nil {
			return err
		}
		projectID = created.ID
		res.ProjectsCreated++
	}

	for _, email := range p.Members {
		member, err := l.directory.ResolveByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("成员 %s: %w", email, err)
		}
		_, err = l.projects.AddMember(ctx, projectID, &dto.AddMemberRequest{UserID: member.ID}, owner.ID)
		switch {
		case err == nil:
			res.MembersAdded++
		case errors.Is(err, service.ErrMemberExists):
		default:
			return fmt.Errorf("成员 %s: %w", email, err)
		}
	}
	l.logger.Info("项目导入完成", zap.String("project", p.Name), zap.Int("members", len(p.Members)))
	return nil
}

// findOwnedProject 同一负责人名下按名称查重（忽略首尾空白）
func (l *Loader) findOwnedProject(ctx context.Context, ownerID, name string) (string, error) {
	list, err := l.projects.ListProjects(ctx, ownerID, model.RoleAdmin)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	for _, p := range list {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return "", nil
}
