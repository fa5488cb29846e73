package service

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
)

// ReviewService 管理员审批工作台
type ReviewService interface {
	GetAdminRequestStats(ctx context.Context, adminID string, req *dto.RequestStatsRequest) (*dto.RequestStatsResponse, error)
	GetAdminRequests(ctx context.Context, adminID string, req *dto.AdminRequestListRequest) ([]dto.AdminRequestResponse, error)
	// ApproveRequest 按申请类型分派到对应的处理流程
	ApproveRequest(ctx context.Context, requestID string, input *dto.ApproveRequestInput, adminID string) (*dto.ReviewResult, error)
	RejectRequest(ctx context.Context, requestID, adminID, note string) (*dto.ReviewResult, error)
}

type reviewService struct {
	cfg       *config.Config
	repo      *repository.Repository
	directory DirectoryService
	request   RequestService
	logger    *zap.Logger
}

// NewReviewService 创建 ReviewService 实例
func NewReviewService(cfg *config.Config, repo *repository.Repository, directory DirectoryService, request RequestService, logger *zap.Logger) ReviewService {
	return &reviewService{cfg: cfg, repo: repo, directory: directory, request: request, logger: logger}
}

// scope 计算管理员的审批范围
//   - projectID 非空：必须是管理员负责的项目
//   - projectID 为空：汇总管理员名下全部项目
//
// 班次类申请按班次 ID 过滤；可用状态申请按项目成员过滤
func (s *reviewService) scope(ctx context.Context, adminID, projectID string) (repository.ReviewFilter, error) {
	var projectIDs []string
	if projectID != "" {
		if _, err := loadOwnedProject(ctx, s.repo, projectID, adminID); err != nil {
			return repository.ReviewFilter{}, err
		}
		projectIDs = []string{projectID}
	} else {
		projects, err := s.repo.Project.ListByOwner(ctx, adminID)
		if err != nil {
			return repository.ReviewFilter{}, err
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ProjectID)
		}
	}

	filter := repository.ReviewFilter{IncludeUnscoped: true}
	if len(projectIDs) == 0 {
		return filter, nil
	}

	shiftIDs, err := s.repo.Shift.ListIDsByProjects(ctx, projectIDs)
	if err != nil {
		return repository.ReviewFilter{}, err
	}
	filter.ShiftIDs = shiftIDs

	seen := make(map[string]bool)
	for _, pid := range projectIDs {
		members, err := s.repo.ProjectMember.ListByProject(ctx, pid)
		if err != nil {
			return repository.ReviewFilter{}, err
		}
		for _, m := range members {
			if m.Status != model.MemberActive || seen[m.UserID] {
				continue
			}
			seen[m.UserID] = true
			filter.RequesterIDs = append(filter.RequesterIDs, m.UserID)
		}
	}
	return filter, nil
}

// ────────────────────── GetAdminRequestStats ──────────────────────

func (s *reviewService) GetAdminRequestStats(ctx context.Context, adminID string, req *dto.RequestStatsRequest) (*dto.RequestStatsResponse, error) {
	loc := s.cfg.Shift.Location()
	from, err := parseDate(req.From, loc)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.To, loc)
	if err != nil {
		return nil, err
	}

	filter, err := s.scope(ctx, adminID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	filter.From = from
	filter.To = nextDay(to)

	total, reviewed, err := s.repo.AdminRequest.CountForReview(ctx, filter)
	if err != nil {
		s.logger.Error("统计审批进度失败", zap.String("admin_id", adminID), zap.Error(err))
		return nil, err
	}

	return &dto.RequestStatsResponse{
		TotalRequests:      total,
		ReviewedRequests:   reviewed,
		ProgressPercentage: progress(total, reviewed),
	}, nil
}

// progress 已审批占比，四舍五入为整数百分比；无申请时为 0
func progress(total, reviewed int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(reviewed) / float64(total) * 100))
}

// ────────────────────── GetAdminRequests ──────────────────────

func (s *reviewService) GetAdminRequests(ctx context.Context, adminID string, req *dto.AdminRequestListRequest) ([]dto.AdminRequestResponse, error) {
	filter, err := s.scope(ctx, adminID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	switch req.Status {
	case "":
		filter.Status = model.RequestPending
	case "all":
	default:
		filter.Status = req.Status
	}

	list, err := s.repo.AdminRequest.ListForReview(ctx, filter)
	if err != nil {
		s.logger.Error("查询审批列表失败", zap.String("admin_id", adminID), zap.Error(err))
		return nil, err
	}
	if len(list) == 0 {
		return []dto.AdminRequestResponse{}, nil
	}

	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.RequesterID)
	}
	users, err := s.directory.ResolveMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(req.Search))
	result := make([]dto.AdminRequestResponse, 0, len(list))
	for i := range list {
		requester := users[list[i].RequesterID]
		if search != "" {
			if requester == nil || !strings.Contains(strings.ToLower(requester.Name), search) {
				continue
			}
		}
		result = append(result, toAdminRequestResponse(&list[i], requester))
	}
	return result, nil
}

// ────────────────────── ApproveRequest / RejectRequest ──────────────────────

func (s *reviewService) ApproveRequest(ctx context.Context, requestID string, input *dto.ApproveRequestInput, adminID string) (*dto.ReviewResult, error) {
	req, err := s.repo.AdminRequest.GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	switch req.RequestType {
	case model.RequestTypeShiftCancellation:
		return s.request.HandleCancellationRequest(ctx, requestID, input.ReplacementEmail, input.ShouldPenalize, adminID)
	case model.RequestTypeFillerApplication:
		return s.request.HandleFillerRequest(ctx, requestID, ActionApprove, adminID)
	case model.RequestTypeAvailability:
		return s.request.HandleAvailabilityRequest(ctx, requestID, ActionApprove, adminID)
	default:
		return nil, ErrWrongRequestType
	}
}

func (s *reviewService) RejectRequest(ctx context.Context, requestID, adminID, note string) (*dto.ReviewResult, error) {
	return s.request.RejectRequest(ctx, requestID, adminID, note)
}
