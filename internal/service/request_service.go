package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/notify"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
	"github.com/purelyricky/avashift-com-sub000/pkg/metrics"
	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
)

// ── 申请模块业务错误 ──

var (
	ErrRequestNotFound        = pkgerrors.New(pkgerrors.KindNotFound, 60001, "申请不存在")
	ErrDuplicateRequest       = pkgerrors.New(pkgerrors.KindConflict, 60002, "已有待处理的同类申请")
	ErrNotShiftParticipant    = pkgerrors.New(pkgerrors.KindPrecondition, 60003, "申请人不在该班次中")
	ErrNotFillerShift         = pkgerrors.New(pkgerrors.KindPrecondition, 60004, "该班次不是补位班次")
	ErrShiftNotOpen           = pkgerrors.New(pkgerrors.KindPrecondition, 60005, "班次未开放报名")
	ErrRequestProcessed       = pkgerrors.New(pkgerrors.KindPrecondition, 60006, "申请已处理")
	ErrWrongRequestType       = pkgerrors.New(pkgerrors.KindInvalid, 60007, "申请类型不匹配")
	ErrReplacementMissing     = pkgerrors.New(pkgerrors.KindInvalid, 60008, "请提供替班人邮箱")
	ErrReplacementNotFound    = pkgerrors.New(pkgerrors.KindNotFound, 60009, "替班人不存在")
	ErrReplacementNotMember   = pkgerrors.New(pkgerrors.KindPrecondition, 60010, "替班人不是该项目的有效成员")
	ErrReplacementRole        = pkgerrors.New(pkgerrors.KindPrecondition, 60011, "替班人角色与申请人不符")
	ErrReplacementOnShift     = pkgerrors.New(pkgerrors.KindConflict, 60012, "替班人已在该班次中")
	ErrRequestBusy            = pkgerrors.New(pkgerrors.KindConflict, 60013, "申请正在被处理，请稍后重试")
	ErrInvalidAction          = pkgerrors.New(pkgerrors.KindInvalid, 60014, "无效的处理动作")
	ErrOriginalAssignmentGone = pkgerrors.New(pkgerrors.KindPrecondition, 60015, "原分配已取消或已完成")
	ErrNotStudent             = pkgerrors.New(pkgerrors.KindForbidden, 60016, "仅学生可提交此申请")
)

// 处理动作
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

const requestLockTTL = 30 * time.Second

var requestTypeLabels = map[string]string{
	model.RequestTypeShiftCancellation: "班次取消",
	model.RequestTypeFillerApplication: "补位报名",
	model.RequestTypeAvailability:      "可用状态变更",
}

var requestStatusLabels = map[string]string{
	model.RequestApproved: "通过",
	model.RequestRejected: "驳回",
}

// RequestService 替班 / 补位 / 可用状态申请业务接口
type RequestService interface {
	// CreateShiftCancellationRequest 学生、组长或安保申请退出班次
	CreateShiftCancellationRequest(ctx context.Context, requesterID string, req *dto.CreateCancellationRequest) (*dto.RequestCreatedResponse, error)
	ApplyForFillerShift(ctx context.Context, studentID, shiftID string) (*dto.RequestCreatedResponse, error)
	CreateAvailabilityChangeRequest(ctx context.Context, studentID string, req *dto.AvailabilityChangeRequest) (*dto.RequestCreatedResponse, error)

	// HandleCancellationRequest 批准取消申请：原分配取消 + 替班人分配 + 可选扣分，同一事务
	HandleCancellationRequest(ctx context.Context, requestID, replacementEmail string, shouldPenalize bool, adminID string) (*dto.ReviewResult, error)
	HandleFillerRequest(ctx context.Context, requestID, action, adminID string) (*dto.ReviewResult, error)
	HandleAvailabilityRequest(ctx context.Context, requestID, action, adminID string) (*dto.ReviewResult, error)
	RejectRequest(ctx context.Context, requestID, adminID, note string) (*dto.ReviewResult, error)

	ListMyRequests(ctx context.Context, requesterID string) ([]dto.AdminRequestResponse, error)
}

type requestService struct {
	cfg       *config.Config
	repo      *repository.Repository
	directory DirectoryService
	rdb       *redis.Client
	scorer    scorer
	notifier  *notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewRequestService 创建 RequestService 实例，rdb 为 nil 时审批不加分布式锁
func NewRequestService(
	cfg *config.Config,
	repo *repository.Repository,
	directory DirectoryService,
	rdb *redis.Client,
	n *notifier,
	logger *zap.Logger,
) RequestService {
	return &requestService{
		cfg:       cfg,
		repo:      repo,
		directory: directory,
		rdb:       rdb,
		scorer:    scorer{cfg: cfg.Scoring},
		notifier:  n,
		logger:    logger,
		now:       time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// 申请提交
// ════════════════════════════════════════════════════════════

func (s *requestService) loadShift(ctx context.Context, shiftID string) (*model.Shift, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	return shift, nil
}

func (s *requestService) ensureNoPending(ctx context.Context, requesterID string, shiftID *string, requestType string) error {
	pending, err := s.repo.AdminRequest.HasPending(ctx, requesterID, shiftID, requestType)
	if err != nil {
		return err
	}
	if pending {
		return ErrDuplicateRequest
	}
	return nil
}

// ────────────────────── CreateShiftCancellationRequest ──────────────────────

func (s *requestService) CreateShiftCancellationRequest(ctx context.Context, requesterID string, req *dto.CreateCancellationRequest) (*dto.RequestCreatedResponse, error) {
	requester, err := s.directory.Resolve(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	shift, err := s.loadShift(ctx, req.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status == model.ShiftCompleted {
		return nil, ErrShiftClosed
	}

	// 1. 申请人必须在班次中：学生持有有效分配，组长/安保为班次负责人
	row := &model.AdminRequest{
		RequestType:      model.RequestTypeShiftCancellation,
		RequesterID:      requesterID,
		RequesterRole:    requester.Role,
		ShiftID:          &shift.ShiftID,
		Reason:           strings.TrimSpace(req.Reason),
		ReplacementEmail: strings.TrimSpace(req.ReplacementEmail),
		Status:           model.RequestPending,
	}
	switch requester.Role {
	case model.RoleStudent:
		assignment, err := s.repo.Assignment.GetActive(ctx, shift.ShiftID, requesterID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrNotShiftParticipant
			}
			return nil, err
		}
		row.AssignmentID = &assignment.AssignmentID
	case model.RoleLeader:
		if !shift.IsLeader(requesterID) {
			return nil, ErrNotShiftParticipant
		}
	case model.RoleGuard:
		if !shift.IsGuard(requesterID) {
			return nil, ErrNotShiftParticipant
		}
	default:
		return nil, ErrForbidden
	}

	// 2. 同一 (申请人, 班次) 只允许一条待处理取消申请
	if err := s.ensureNoPending(ctx, requesterID, &shift.ShiftID, model.RequestTypeShiftCancellation); err != nil {
		return nil, err
	}

	row.SetCreator(requesterID)
	if err := s.repo.AdminRequest.Create(ctx, row); err != nil {
		s.logger.Error("提交取消申请失败", zap.String("shift_id", shift.ShiftID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("取消申请已提交",
		zap.String("request_id", row.RequestID),
		zap.String("requester_id", requesterID),
		zap.String("role", requester.Role),
	)
	s.notifyOwner(ctx, shift, requester, row)

	return &dto.RequestCreatedResponse{Success: true, Message: "申请已提交，等待管理员审批", RequestID: row.RequestID}, nil
}

// ────────────────────── ApplyForFillerShift ──────────────────────

func (s *requestService) ApplyForFillerShift(ctx context.Context, studentID, shiftID string) (*dto.RequestCreatedResponse, error) {
	requester, err := s.directory.Resolve(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if requester.Role != model.RoleStudent {
		return nil, ErrNotStudent
	}

	shift, err := s.loadShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.ShiftType != model.ShiftTypeFiller {
		return nil, ErrNotFillerShift
	}
	if shift.Status != model.ShiftPublished {
		return nil, ErrShiftNotOpen
	}
	if shift.IsFull() {
		return nil, ErrShiftFull
	}

	if _, err := s.repo.ProjectMember.GetActive(ctx, shift.ProjectID, studentID); err != nil {
		if isNotFound(err) {
			return nil, ErrNotProjectMember
		}
		return nil, err
	}
	if _, err := s.repo.Assignment.GetActive(ctx, shiftID, studentID); err == nil {
		return nil, ErrAlreadyAssigned
	} else if !isNotFound(err) {
		return nil, err
	}
	if err := s.ensureNoPending(ctx, studentID, &shiftID, model.RequestTypeFillerApplication); err != nil {
		return nil, err
	}

	row := &model.AdminRequest{
		RequestType:   model.RequestTypeFillerApplication,
		RequesterID:   studentID,
		RequesterRole: model.RoleStudent,
		ShiftID:       &shiftID,
		Status:        model.RequestPending,
	}
	row.SetCreator(studentID)
	if err := s.repo.AdminRequest.Create(ctx, row); err != nil {
		s.logger.Error("提交补位报名失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("补位报名已提交", zap.String("request_id", row.RequestID), zap.String("student_id", studentID))
	s.notifyOwner(ctx, shift, requester, row)

	return &dto.RequestCreatedResponse{Success: true, Message: "报名已提交", RequestID: row.RequestID}, nil
}

// ────────────────────── CreateAvailabilityChangeRequest ──────────────────────

func (s *requestService) CreateAvailabilityChangeRequest(ctx context.Context, studentID string, req *dto.AvailabilityChangeRequest) (*dto.RequestCreatedResponse, error) {
	requester, err := s.directory.Resolve(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if requester.Role != model.RoleStudent || requester.Student == nil {
		return nil, ErrNotStudent
	}
	if req.Status != model.AvailabilityActive && req.Status != model.AvailabilityInactive {
		return nil, ErrInvalidAvailStatus
	}
	if err := s.ensureNoPending(ctx, studentID, nil, model.RequestTypeAvailability); err != nil {
		return nil, err
	}

	row := &model.AdminRequest{
		RequestType:     model.RequestTypeAvailability,
		RequesterID:     studentID,
		RequesterRole:   model.RoleStudent,
		Reason:          strings.TrimSpace(req.Reason),
		RequestedStatus: req.Status,
		Status:          model.RequestPending,
	}
	row.SetCreator(studentID)
	if err := s.repo.AdminRequest.Create(ctx, row); err != nil {
		s.logger.Error("提交可用状态申请失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("可用状态申请已提交", zap.String("request_id", row.RequestID), zap.String("status", req.Status))
	return &dto.RequestCreatedResponse{Success: true, Message: "申请已提交", RequestID: row.RequestID}, nil
}

// ════════════════════════════════════════════════════════════
// 审批
// ════════════════════════════════════════════════════════════

// loadPending 读取申请并校验类型与 pending 状态
func (s *requestService) loadPending(ctx context.Context, requestID, requestType string) (*model.AdminRequest, error) {
	req, err := s.repo.AdminRequest.GetByID(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if requestType != "" && req.RequestType != requestType {
		return nil, ErrWrongRequestType
	}
	if req.Status != model.RequestPending {
		return nil, ErrRequestProcessed
	}
	return req, nil
}

// authorize 班次类申请要求管理员负责该项目；可用状态申请要求申请人是管理员某个项目的成员
func (s *requestService) authorize(ctx context.Context, req *model.AdminRequest, adminID string) (*model.Shift, error) {
	if req.ShiftID != nil {
		shift := req.Shift
		if shift == nil {
			var err error
			if shift, err = s.loadShift(ctx, *req.ShiftID); err != nil {
				return nil, err
			}
		}
		project, err := loadOwnedProject(ctx, s.repo, shift.ProjectID, adminID)
		if err != nil {
			return nil, err
		}
		shift.Project = project
		return shift, nil
	}

	projects, err := s.repo.Project.ListByOwner(ctx, adminID)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if _, err := s.repo.ProjectMember.GetActive(ctx, p.ProjectID, req.RequesterID); err == nil {
			return nil, nil
		} else if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrForbidden
}

// lock 以申请 ID 获取分布式锁；Redis 不可用时降级为仅依赖数据库条件更新
func (s *requestService) lock(ctx context.Context, requestID string) (*redis.Lock, error) {
	if s.rdb == nil {
		return nil, nil
	}
	l, err := s.rdb.AcquireLock(ctx, "admin_request:"+requestID, requestLockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, ErrRequestBusy
		}
		s.logger.Warn("获取审批锁失败，继续处理", zap.String("request_id", requestID), zap.Error(err))
		return nil, nil
	}
	return l, nil
}

// review 在事务内锁定申请行并写入审批结果
func review(ctx context.Context, tx *repository.Repository, requestID, status, adminID, note, replacementEmail string, penalized bool, now time.Time) error {
	locked, err := tx.AdminRequest.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		if isNotFound(err) {
			return ErrRequestNotFound
		}
		return err
	}
	if err := model.RequestStates.Check(locked.Status, status); err != nil {
		return ErrRequestProcessed
	}
	locked.Status = status
	locked.ReviewedBy = &adminID
	locked.ReviewedAt = &now
	locked.ReviewNote = note
	locked.Penalized = penalized
	if replacementEmail != "" {
		locked.ReplacementEmail = replacementEmail
	}
	if err := tx.AdminRequest.Review(ctx, locked); err != nil {
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return ErrRequestProcessed
		}
		return err
	}
	return nil
}

// ────────────────────── HandleCancellationRequest ──────────────────────

func (s *requestService) HandleCancellationRequest(ctx context.Context, requestID, replacementEmail string, shouldPenalize bool, adminID string) (*dto.ReviewResult, error) {
	// ── 1. 全部查询与前置校验，任何失败都不产生写入 ──
	req, err := s.loadPending(ctx, requestID, model.RequestTypeShiftCancellation)
	if err != nil {
		return nil, err
	}
	shift, err := s.authorize(ctx, req, adminID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(replacementEmail)
	if email == "" {
		email = req.ReplacementEmail
	}
	if email == "" {
		return nil, ErrReplacementMissing
	}
	replacement, err := s.directory.ResolveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrReplacementNotFound
		}
		return nil, err
	}
	if !replacement.IsActive {
		return nil, ErrUserInactive
	}
	if replacement.ID == req.RequesterID {
		return nil, ErrReplacementOnShift
	}
	if replacement.Role != req.RequesterRole {
		return nil, ErrReplacementRole
	}
	member, err := s.repo.ProjectMember.GetActive(ctx, shift.ProjectID, replacement.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrReplacementNotMember
		}
		return nil, err
	}

	var original *model.ShiftAssignment
	switch req.RequesterRole {
	case model.RoleStudent:
		if replacement.Student != nil && replacement.Student.AvailabilityStatus != model.AvailabilityActive {
			return nil, ErrStudentUnavailable
		}
		if _, err := s.repo.Assignment.GetActive(ctx, shift.ShiftID, replacement.ID); err == nil {
			return nil, ErrReplacementOnShift
		} else if !isNotFound(err) {
			return nil, err
		}
		if req.AssignmentID == nil {
			return nil, ErrOriginalAssignmentGone
		}
		original, err = s.repo.Assignment.GetByID(ctx, *req.AssignmentID)
		if err != nil {
			if isNotFound(err) {
				return nil, ErrOriginalAssignmentGone
			}
			return nil, err
		}
		if !model.AssignmentStates.Allows(original.Status, model.AssignmentCancelled) {
			return nil, ErrOriginalAssignmentGone
		}
	case model.RoleLeader:
		if !shift.IsLeader(req.RequesterID) {
			return nil, ErrOriginalAssignmentGone
		}
		if shift.IsGuard(replacement.ID) {
			return nil, ErrReplacementOnShift
		}
	case model.RoleGuard:
		if !shift.IsGuard(req.RequesterID) {
			return nil, ErrOriginalAssignmentGone
		}
		if shift.IsLeader(replacement.ID) {
			return nil, ErrReplacementOnShift
		}
	default:
		return nil, ErrReplacementRole
	}

	// ── 2. 以申请 ID 加锁 ──
	lock, err := s.lock(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.WithoutCancel(ctx))

	// ── 3. 事务：申请 CAS + 分配/负责人替换 + 扣分 ──
	now := s.now()
	var (
		penalty  *dto.PenaltyDetails
		assigned *model.ShiftAssignment
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		switch req.RequesterRole {
		case model.RoleStudent:
			if err := tx.Assignment.UpdateStatus(ctx, original.AssignmentID,
				model.AssignmentStates.Sources(model.AssignmentCancelled), model.AssignmentCancelled, adminID); err != nil {
				if errors.Is(err, pkgerrors.ErrStateConflict) {
					return ErrOriginalAssignmentGone
				}
				return err
			}
			// 名额由原分配转给替班人，assigned_count 不变
			assigned = &model.ShiftAssignment{
				ShiftID:      shift.ShiftID,
				StudentID:    replacement.ID,
				MembershipID: member.MembershipID,
				Status:       model.AssignmentAssigned,
				AssignedBy:   adminID,
				AssignedAt:   now,
			}
			assigned.SetCreator(adminID)
			if err := tx.Assignment.Create(ctx, assigned); err != nil {
				return err
			}
		case model.RoleLeader:
			if err := tx.Shift.UpdateStaff(ctx, shift.ShiftID, &replacement.ID, shift.GuardID, adminID); err != nil {
				return err
			}
		case model.RoleGuard:
			if err := tx.Shift.UpdateStaff(ctx, shift.ShiftID, shift.LeaderID, &replacement.ID, adminID); err != nil {
				return err
			}
		}

		if shouldPenalize && req.RequesterRole == model.RoleStudent {
			d, err := s.scorer.penalize(ctx, tx, req.RequesterID, adminID)
			if err != nil {
				return err
			}
			penalty = d
		}

		return review(ctx, tx, requestID, model.RequestApproved, adminID, "", email, penalty != nil, now)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrReplacementOnShift
		}
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("审批取消申请失败", zap.String("request_id", requestID), zap.Error(err))
		}
		return nil, err
	}

	metrics.RequestsReviewed.WithLabelValues(req.RequestType, model.RequestApproved).Inc()
	s.logger.Info("取消申请已批准",
		zap.String("request_id", requestID),
		zap.String("replacement_id", replacement.ID),
		zap.Bool("penalized", penalty != nil),
		zap.String("admin_id", adminID),
	)

	// ── 4. 提交后通知，失败只记日志 ──
	s.directory.Invalidate(ctx, req.RequesterID)
	loc := s.cfg.Shift.Location()
	relatedType, relatedID := "shift", shift.ShiftID
	if assigned != nil {
		relatedType, relatedID = "assignment", assigned.AssignmentID
	}
	s.notifier.inApp(ctx, replacement.ID, model.NotificationShiftAssigned, "新的替班分配",
		fmt.Sprintf("您被安排替班：%s", shift.StartTime.In(loc).Format("2006-01-02 15:04")),
		relatedType, relatedID)
	fields := shiftFields(shift, loc)
	fields["Reason"] = "替班"
	s.notifier.email(replacement, notify.TemplateShiftAssignment, fields)
	s.notifyRequester(ctx, req, shift, model.RequestApproved, "", penalty)

	result := &dto.ReviewResult{Success: true, Message: "申请已批准，替班人已安排", PenaltyDetails: penalty}
	return result, nil
}

// ────────────────────── HandleFillerRequest ──────────────────────

func (s *requestService) HandleFillerRequest(ctx context.Context, requestID, action, adminID string) (*dto.ReviewResult, error) {
	switch action {
	case ActionApprove:
	case ActionReject:
		req, err := s.loadPending(ctx, requestID, model.RequestTypeFillerApplication)
		if err != nil {
			return nil, err
		}
		return s.reject(ctx, req, adminID, "")
	default:
		return nil, ErrInvalidAction
	}

	req, err := s.loadPending(ctx, requestID, model.RequestTypeFillerApplication)
	if err != nil {
		return nil, err
	}
	shift, err := s.authorize(ctx, req, adminID)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.ProjectMember.GetActive(ctx, shift.ProjectID, req.RequesterID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotProjectMember
		}
		return nil, err
	}
	if _, err := s.repo.Assignment.GetActive(ctx, shift.ShiftID, req.RequesterID); err == nil {
		return nil, ErrAlreadyAssigned
	} else if !isNotFound(err) {
		return nil, err
	}

	lock, err := s.lock(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.WithoutCancel(ctx))

	now := s.now()
	var assignment *model.ShiftAssignment
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Shift.IncrementAssigned(ctx, shift.ShiftID); err != nil {
			if errors.Is(err, pkgerrors.ErrStateConflict) {
				return ErrShiftFull
			}
			return err
		}
		assignment = &model.ShiftAssignment{
			ShiftID:      shift.ShiftID,
			StudentID:    req.RequesterID,
			MembershipID: member.MembershipID,
			Status:       model.AssignmentAssigned,
			AssignedBy:   adminID,
			AssignedAt:   now,
		}
		assignment.SetCreator(adminID)
		if err := tx.Assignment.Create(ctx, assignment); err != nil {
			return err
		}
		return review(ctx, tx, requestID, model.RequestApproved, adminID, "", "", false, now)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyAssigned
		}
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("审批补位报名失败", zap.String("request_id", requestID), zap.Error(err))
		}
		return nil, err
	}

	metrics.RequestsReviewed.WithLabelValues(req.RequestType, model.RequestApproved).Inc()
	s.logger.Info("补位报名已批准", zap.String("request_id", requestID), zap.String("student_id", req.RequesterID))

	s.notifier.inApp(ctx, req.RequesterID, model.NotificationShiftAssigned, "补位报名已通过",
		fmt.Sprintf("您已加入 %s 的班次", shift.StartTime.In(s.cfg.Shift.Location()).Format("2006-01-02 15:04")),
		"assignment", assignment.AssignmentID)
	s.notifyRequester(ctx, req, shift, model.RequestApproved, "", nil)

	return &dto.ReviewResult{Success: true, Message: "报名已批准"}, nil
}

// ────────────────────── HandleAvailabilityRequest ──────────────────────

func (s *requestService) HandleAvailabilityRequest(ctx context.Context, requestID, action, adminID string) (*dto.ReviewResult, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, ErrInvalidAction
	}
	req, err := s.loadPending(ctx, requestID, model.RequestTypeAvailability)
	if err != nil {
		return nil, err
	}
	if action == ActionReject {
		return s.reject(ctx, req, adminID, "")
	}
	if _, err := s.authorize(ctx, req, adminID); err != nil {
		return nil, err
	}

	lock, err := s.lock(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer lock.Release(context.WithoutCancel(ctx))

	now := s.now()
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := s.scorer.setAvailability(ctx, tx, req.RequesterID, req.RequestedStatus, adminID); err != nil {
			return err
		}
		return review(ctx, tx, requestID, model.RequestApproved, adminID, "", "", false, now)
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("审批可用状态申请失败", zap.String("request_id", requestID), zap.Error(err))
		}
		return nil, err
	}

	metrics.RequestsReviewed.WithLabelValues(req.RequestType, model.RequestApproved).Inc()
	s.directory.Invalidate(ctx, req.RequesterID)
	s.notifyRequester(ctx, req, nil, model.RequestApproved, "", nil)

	return &dto.ReviewResult{Success: true, Message: "可用状态已更新"}, nil
}

// ────────────────────── RejectRequest ──────────────────────

func (s *requestService) RejectRequest(ctx context.Context, requestID, adminID, note string) (*dto.ReviewResult, error) {
	req, err := s.loadPending(ctx, requestID, "")
	if err != nil {
		return nil, err
	}
	return s.reject(ctx, req, adminID, note)
}

func (s *requestService) reject(ctx context.Context, req *model.AdminRequest, adminID, note string) (*dto.ReviewResult, error) {
	shift, err := s.authorize(ctx, req, adminID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return review(ctx, tx, req.RequestID, model.RequestRejected, adminID, strings.TrimSpace(note), "", false, now)
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("驳回申请失败", zap.String("request_id", req.RequestID), zap.Error(err))
		}
		return nil, err
	}

	metrics.RequestsReviewed.WithLabelValues(req.RequestType, model.RequestRejected).Inc()
	s.logger.Info("申请已驳回", zap.String("request_id", req.RequestID), zap.String("admin_id", adminID))
	s.notifyRequester(ctx, req, shift, model.RequestRejected, note, nil)

	return &dto.ReviewResult{Success: true, Message: "申请已驳回"}, nil
}

// ────────────────────── ListMyRequests ──────────────────────

func (s *requestService) ListMyRequests(ctx context.Context, requesterID string) ([]dto.AdminRequestResponse, error) {
	list, err := s.repo.AdminRequest.ListByRequester(ctx, requesterID)
	if err != nil {
		s.logger.Error("查询我的申请失败", zap.String("requester_id", requesterID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.AdminRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, toAdminRequestResponse(&list[i], nil))
	}
	return result, nil
}

// ── 通知 ──

// notifyOwner 新申请通知项目负责管理员
func (s *requestService) notifyOwner(ctx context.Context, shift *model.Shift, requester *dto.UserResponse, row *model.AdminRequest) {
	if shift.Project == nil {
		return
	}
	ownerID := shift.Project.OwnerID
	label := requestTypeLabels[row.RequestType]
	s.notifier.inApp(ctx, ownerID, model.NotificationRequestCreated, "新的待审批申请",
		fmt.Sprintf("%s 提交了%s申请", requester.Name, label),
		"admin_request", row.RequestID)

	owner, err := s.directory.Resolve(ctx, ownerID)
	if err != nil {
		s.logger.Warn("解析项目管理员失败", zap.String("owner_id", ownerID), zap.Error(err))
		return
	}
	s.notifier.email(owner, notify.TemplateRequestCreated, map[string]string{
		"RequesterName": requester.Name,
		"RequestType":   label,
		"Reason":        row.Reason,
	})
}

// notifyRequester 审批结果通知申请人
func (s *requestService) notifyRequester(ctx context.Context, req *model.AdminRequest, shift *model.Shift, status, note string, penalty *dto.PenaltyDetails) {
	label := requestTypeLabels[req.RequestType]
	statusLabel := requestStatusLabels[status]
	s.notifier.inApp(ctx, req.RequesterID, model.NotificationRequestReviewed, "申请审批结果",
		fmt.Sprintf("您的%s申请已%s", label, statusLabel),
		"admin_request", req.RequestID)

	requester, err := s.directory.Resolve(ctx, req.RequesterID)
	if err != nil {
		s.logger.Warn("解析申请人失败", zap.String("requester_id", req.RequesterID), zap.Error(err))
		return
	}
	fields := map[string]string{
		"RequestType": label,
		"Status":      statusLabel,
		"Note":        note,
	}
	if shift != nil {
		for k, v := range shiftFields(shift, s.cfg.Shift.Location()) {
			fields[k] = v
		}
	}
	if penalty != nil {
		fields["Penalty"] = fmt.Sprintf("评分 %.1f → %.1f，守时分 %.1f → %.1f",
			penalty.PreviousRating, penalty.NewRating, penalty.PreviousPunctuality, penalty.NewPunctuality)
	}
	s.notifier.email(requester, notify.TemplateRequestStatus, fields)
}

// toAdminRequestResponse requester 为 nil 时不填充申请人信息
func toAdminRequestResponse(r *model.AdminRequest, requester *dto.UserResponse) dto.AdminRequestResponse {
	resp := dto.AdminRequestResponse{
		ID:               r.RequestID,
		RequestType:      r.RequestType,
		Status:           r.Status,
		AssignmentID:     r.AssignmentID,
		Reason:           r.Reason,
		ReplacementEmail: r.ReplacementEmail,
		RequestedStatus:  r.RequestedStatus,
		ReviewedBy:       r.ReviewedBy,
		ReviewedAt:       formatTimePtr(r.ReviewedAt),
		ReviewNote:       r.ReviewNote,
		Penalized:        r.Penalized,
		CreatedAt:        formatTime(r.CreatedAt),
	}
	if requester != nil {
		resp.Requester = &dto.RequesterBrief{
			ID:    requester.ID,
			Name:  requester.Name,
			Email: requester.Email,
			Role:  requester.Role,
		}
	}
	if r.Shift != nil {
		sh := toShiftResponse(r.Shift)
		resp.Shift = &sh
	}
	return resp
}

// [自证通过] internal/service/request_service.go
