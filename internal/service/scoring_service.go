package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// ── 评分模块业务错误 ──

var (
	ErrRatingExists       = pkgerrors.New(pkgerrors.KindConflict, 70001, "该学生本班次已评分")
	ErrInvalidScore       = pkgerrors.New(pkgerrors.KindInvalid, 70002, "评分取值超出范围")
	ErrNotShiftLeader     = pkgerrors.New(pkgerrors.KindForbidden, 70003, "仅本班次组长可评分")
	ErrInvalidAvailStatus = pkgerrors.New(pkgerrors.KindInvalid, 70004, "可用状态取值无效")
)

// 分数边界
const (
	minRating      = 1.0
	maxRating      = 5.0
	minPunctuality = 0.0
	maxPunctuality = 100.0
)

// ScoringService 学生评分业务接口
type ScoringService interface {
	// PenalizeStudent 单独执行一次惩罚（取消申请审批之外的入口）
	PenalizeStudent(ctx context.Context, studentID, actorID string) (*dto.PenaltyDetails, error)
	SubmitRating(ctx context.Context, shiftID, leaderID string, req *dto.SubmitRatingRequest) (*dto.RatingResponse, error)
	GetStudentScore(ctx context.Context, studentID string) (*dto.StudentScoreResponse, error)
	SetAvailability(ctx context.Context, studentID, status, actorID string) (*dto.StudentScoreResponse, error)
}

// CalculateNewRating 历史加权：round(current×0.7 + submitted×0.3, 1)
func CalculateNewRating(current, submitted float64) float64 {
	return weighted(current, submitted, 0.7, minRating, maxRating)
}

// CalculateNewPunctuality 与评分同权重，结果限制在 [0,100]
func CalculateNewPunctuality(current, submitted float64) float64 {
	return weighted(current, submitted, 0.7, minPunctuality, maxPunctuality)
}

func weighted(current, submitted, historyWeight, lo, hi float64) float64 {
	v := round(current*historyWeight+submitted*(1-historyWeight), 1)
	return math.Max(lo, math.Min(hi, v))
}

// ════════════════════════════════════════════════════════════
// scorer 分数读改写，调用方负责开启事务
// ════════════════════════════════════════════════════════════

type scorer struct {
	cfg config.ScoringConfig
}

// penalize 行锁读取学生档案后扣减评分与守时分
func (sc scorer) penalize(ctx context.Context, tx *repository.Repository, studentID, actorID string) (*dto.PenaltyDetails, error) {
	st, err := tx.Student.GetByUserIDForUpdate(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentMissing
		}
		return nil, err
	}

	details := &dto.PenaltyDetails{
		PreviousRating:      st.Rating,
		PreviousPunctuality: st.PunctualityScore,
	}
	st.Rating = math.Max(minRating, round(st.Rating-sc.cfg.PenaltyRating, 1))
	st.PunctualityScore = math.Max(minPunctuality, round(st.PunctualityScore-sc.cfg.PenaltyPunctuality, 1))
	st.SetUpdater(actorID)
	if err := tx.Student.UpdateScores(ctx, st); err != nil {
		return nil, err
	}

	details.NewRating = st.Rating
	details.NewPunctuality = st.PunctualityScore
	return details, nil
}

// apply 按配置的历史权重合并一次评分提交
func (sc scorer) apply(ctx context.Context, tx *repository.Repository, studentID, actorID string, rating, punctuality float64) (*model.Student, error) {
	st, err := tx.Student.GetByUserIDForUpdate(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentMissing
		}
		return nil, err
	}
	w := sc.cfg.HistoryWeight
	if w <= 0 || w >= 1 {
		w = 0.7
	}
	st.Rating = weighted(st.Rating, rating, w, minRating, maxRating)
	st.PunctualityScore = weighted(st.PunctualityScore, punctuality, w, minPunctuality, maxPunctuality)
	st.SetUpdater(actorID)
	if err := tx.Student.UpdateScores(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (sc scorer) setAvailability(ctx context.Context, tx *repository.Repository, studentID, status, actorID string) (*model.Student, error) {
	if status != model.AvailabilityActive && status != model.AvailabilityInactive {
		return nil, ErrInvalidAvailStatus
	}
	st, err := tx.Student.GetByUserIDForUpdate(ctx, studentID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrStudentMissing
		}
		return nil, err
	}
	if st.AvailabilityStatus == status {
		return st, nil
	}
	st.AvailabilityStatus = status
	st.SetUpdater(actorID)
	if err := tx.Student.UpdateScores(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ════════════════════════════════════════════════════════════

type scoringService struct {
	repo      *repository.Repository
	directory DirectoryService
	scorer    scorer
	notifier  *notifier
	logger    *zap.Logger
}

// NewScoringService 创建 ScoringService 实例
func NewScoringService(
	cfg *config.Config,
	repo *repository.Repository,
	directory DirectoryService,
	n *notifier,
	logger *zap.Logger,
) ScoringService {
	return &scoringService{
		repo:      repo,
		directory: directory,
		scorer:    scorer{cfg: cfg.Scoring},
		notifier:  n,
		logger:    logger,
	}
}

// ────────────────────── PenalizeStudent ──────────────────────

func (s *scoringService) PenalizeStudent(ctx context.Context, studentID, actorID string) (*dto.PenaltyDetails, error) {
	var details *dto.PenaltyDetails
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		d, err := s.scorer.penalize(ctx, tx, studentID, actorID)
		if err != nil {
			return err
		}
		details = d
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStudentMissing) {
			s.logger.Error("扣分失败", zap.String("student_id", studentID), zap.Error(err))
		}
		return nil, err
	}

	s.directory.Invalidate(ctx, studentID)
	s.logger.Info("学生已被扣分",
		zap.String("student_id", studentID),
		zap.Float64("rating", details.NewRating),
		zap.Float64("punctuality", details.NewPunctuality),
	)
	s.notifier.inApp(ctx, studentID, model.NotificationScoreChanged, "评分已调整",
		fmt.Sprintf("评分 %.1f → %.1f，守时分 %.1f → %.1f",
			details.PreviousRating, details.NewRating, details.PreviousPunctuality, details.NewPunctuality),
		"", "")
	return details, nil
}

// ────────────────────── SubmitRating ──────────────────────

func (s *scoringService) SubmitRating(ctx context.Context, shiftID, leaderID string, req *dto.SubmitRatingRequest) (*dto.RatingResponse, error) {
	if req.Rating < minRating || req.Rating > maxRating ||
		req.Punctuality < minPunctuality || req.Punctuality > maxPunctuality {
		return nil, ErrInvalidScore
	}

	// 1. 校验组长身份与学生分配
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	if !shift.IsLeader(leaderID) {
		return nil, ErrNotShiftLeader
	}
	if _, err := s.repo.Assignment.GetActive(ctx, shiftID, req.StudentID); err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		// 已完成的分配同样可以评分
		if !s.hasCompleted(ctx, shiftID, req.StudentID) {
			return nil, ErrNotAssigned
		}
	}

	// 2. 事务：合并分数并留存提交记录
	var submission *model.RatingSubmission
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		st, err := s.scorer.apply(ctx, tx, req.StudentID, leaderID, req.Rating, req.Punctuality)
		if err != nil {
			return err
		}
		submission = &model.RatingSubmission{
			ShiftID:              shiftID,
			StudentID:            req.StudentID,
			LeaderID:             leaderID,
			Rating:               req.Rating,
			Punctuality:          req.Punctuality,
			ResultingRating:      st.Rating,
			ResultingPunctuality: st.PunctualityScore,
		}
		return tx.Rating.Create(ctx, submission)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrRatingExists
		}
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("提交评分失败", zap.String("shift_id", shiftID), zap.Error(err))
		}
		return nil, err
	}

	s.directory.Invalidate(ctx, req.StudentID)
	s.notifier.inApp(ctx, req.StudentID, model.NotificationScoreChanged, "收到新的班次评分",
		fmt.Sprintf("当前评分 %.1f，守时分 %.1f", submission.ResultingRating, submission.ResultingPunctuality),
		"shift", shiftID)

	return &dto.RatingResponse{
		SubmissionID:         submission.SubmissionID,
		StudentID:            req.StudentID,
		ResultingRating:      submission.ResultingRating,
		ResultingPunctuality: submission.ResultingPunctuality,
	}, nil
}

func (s *scoringService) hasCompleted(ctx context.Context, shiftID, studentID string) bool {
	list, err := s.repo.Assignment.ListByShift(ctx, shiftID)
	if err != nil {
		return false
	}
	for _, a := range list {
		if a.StudentID == studentID && a.Status == model.AssignmentCompleted {
			return true
		}
	}
	return false
}

// ────────────────────── GetStudentScore / SetAvailability ──────────────────────

func (s *scoringService) GetStudentScore(ctx context.Context, studentID string) (*dto.StudentScoreResponse, error) {
	user, err := s.directory.Resolve(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if user.Student == nil {
		return nil, ErrStudentMissing
	}
	return user.Student, nil
}

func (s *scoringService) SetAvailability(ctx context.Context, studentID, status, actorID string) (*dto.StudentScoreResponse, error) {
	var st *model.Student
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		st, err = s.scorer.setAvailability(ctx, tx, studentID, status, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.directory.Invalidate(ctx, studentID)

	name := ""
	if u, err := s.directory.Resolve(ctx, studentID); err == nil {
		name = u.Name
	}
	return toScoreResponse(st, name), nil
}

// [自证通过] internal/service/scoring_service.go
