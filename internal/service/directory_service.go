package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
)

const directoryCacheTTL = 5 * time.Minute

// DirectoryService 跨角色的用户查询入口
// 学生、组长、安保、客户统一从这里解析姓名、邮箱、角色及学生档案
type DirectoryService interface {
	Resolve(ctx context.Context, userID string) (*dto.UserResponse, error)
	ResolveByEmail(ctx context.Context, email string) (*dto.UserResponse, error)
	// ResolveMany 批量解析，不存在的 ID 不出现在结果中
	ResolveMany(ctx context.Context, ids []string) (map[string]*dto.UserResponse, error)
	// Invalidate 分数或状态变更后清除缓存
	Invalidate(ctx context.Context, userID string)
}

type directoryService struct {
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewDirectoryService 创建 DirectoryService 实例，rdb 为 nil 时不缓存
func NewDirectoryService(repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) DirectoryService {
	return &directoryService{repo: repo, rdb: rdb, logger: logger}
}

func directoryKey(userID string) string {
	return "user:" + userID
}

func (s *directoryService) Resolve(ctx context.Context, userID string) (*dto.UserResponse, error) {
	if s.rdb != nil {
		var cached dto.UserResponse
		hit, err := s.rdb.GetJSON(ctx, directoryKey(userID), &cached)
		if err != nil {
			s.logger.Warn("读取用户缓存失败", zap.String("user_id", userID), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	s.store(ctx, resp)
	return resp, nil
}

func (s *directoryService) ResolveByEmail(ctx context.Context, email string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("按邮箱查询用户失败", zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	s.store(ctx, resp)
	return resp, nil
}

func (s *directoryService) ResolveMany(ctx context.Context, ids []string) (map[string]*dto.UserResponse, error) {
	result := make(map[string]*dto.UserResponse, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	seen := make(map[string]bool, len(ids))
	var unique []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	users, err := s.repo.User.ListByIDs(ctx, unique)
	if err != nil {
		s.logger.Error("批量查询用户失败", zap.Int("count", len(unique)), zap.Error(err))
		return nil, err
	}
	for i := range users {
		result[users[i].UserID] = toUserResponse(&users[i])
	}
	return result, nil
}

func (s *directoryService) Invalidate(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Delete(ctx, directoryKey(userID)); err != nil {
		s.logger.Warn("清除用户缓存失败", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *directoryService) store(ctx context.Context, u *dto.UserResponse) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.SetJSON(ctx, directoryKey(u.ID), u, directoryCacheTTL); err != nil {
		s.logger.Warn("写入用户缓存失败", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func toUserResponse(u *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:       u.UserID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
	if u.Student != nil {
		resp.Student = toScoreResponse(u.Student, u.Name)
	}
	return resp
}

func toScoreResponse(st *model.Student, name string) *dto.StudentScoreResponse {
	return &dto.StudentScoreResponse{
		StudentID:          st.UserID,
		Name:               name,
		PunctualityScore:   st.PunctualityScore,
		Rating:             st.Rating,
		AvailabilityStatus: st.AvailabilityStatus,
	}
}

// displayName 从批量解析结果中取姓名，缺失时返回空串
func displayName(users map[string]*dto.UserResponse, id string) string {
	if u, ok := users[id]; ok {
		return u.Name
	}
	return ""
}
