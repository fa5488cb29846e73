package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/purelyricky/avashift-com-sub000/internal/model"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// VerificationCodeRepository 签到码数据访问接口
type VerificationCodeRepository interface {
	Create(ctx context.Context, code *model.VerificationCode) error
	// GetActiveUnread 返回 (student, shift) 当前 active 且未读的签到码
	GetActiveUnread(ctx context.Context, studentID, shiftID string) (*model.VerificationCode, error)
	// GetLatest 返回 (student, shift) 最新一条 active 或 used 的签到码
	GetLatest(ctx context.Context, studentID, shiftID string) (*model.VerificationCode, error)
	// ListActiveByCode 在给定班次范围内按码值查找 active 且未读的签到码，加行锁
	ListActiveByCode(ctx context.Context, code string, shiftIDs []string) ([]model.VerificationCode, error)
	ListActiveByShift(ctx context.Context, shiftID string) ([]model.VerificationCode, error)
	// MarkUsed 条件更新 active → used，已被他人核销时返回 ErrStateConflict
	MarkUsed(ctx context.Context, codeID, guardID string, at time.Time) error
	// Expire 条件更新 active → expired
	Expire(ctx context.Context, codeID string) error
	// ExpireCreatedBefore 批量过期创建时间早于 cutoff 的 active 签到码
	ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttendanceRepository 考勤记录数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	GetByShiftAndStudent(ctx context.Context, shiftID, studentID string) (*model.AttendanceRecord, error)
	// GetOpen 返回已签到未签退的考勤记录
	GetOpen(ctx context.Context, shiftID, studentID string) (*model.AttendanceRecord, error)
	// RecordClockIn 为已有记录写入签到时间与核验安保
	RecordClockIn(ctx context.Context, id string, at time.Time, guardID string) error
	// SetClockOut 条件更新 clock_out_time IS NULL → at
	SetClockOut(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id, status, markedBy string) error
	ListByShift(ctx context.Context, shiftID string) ([]model.AttendanceRecord, error)
	ListByShiftIDs(ctx context.Context, shiftIDs []string) ([]model.AttendanceRecord, error)
	// ListByStudent 按班次开始时间过滤，from/to 为空表示不限
	ListByStudent(ctx context.Context, studentID string, from, to *time.Time) ([]model.AttendanceRecord, error)
}

// RatingRepository 评分记录数据访问接口
type RatingRepository interface {
	Create(ctx context.Context, submission *model.RatingSubmission) error
	ListByStudent(ctx context.Context, studentID string) ([]model.RatingSubmission, error)
}

// ── VerificationCode Repository 实现 ──

type verificationCodeRepo struct {
	db *gorm.DB
}

// NewVerificationCodeRepo 创建 VerificationCodeRepository 实例
func NewVerificationCodeRepo(db *gorm.DB) VerificationCodeRepository {
	return &verificationCodeRepo{db: db}
}

func (r *verificationCodeRepo) Create(ctx context.Context, code *model.VerificationCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *verificationCodeRepo) GetActiveUnread(ctx context.Context, studentID, shiftID string) (*model.VerificationCode, error) {
	var code model.VerificationCode
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND shift_id = ? AND status = ? AND is_read = ?", studentID, shiftID, model.CodeActive, false).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *verificationCodeRepo) GetLatest(ctx context.Context, studentID, shiftID string) (*model.VerificationCode, error) {
	var code model.VerificationCode
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND shift_id = ? AND status IN ?", studentID, shiftID, []string{model.CodeActive, model.CodeUsed}).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *verificationCodeRepo) ListActiveByCode(ctx context.Context, code string, shiftIDs []string) ([]model.VerificationCode, error) {
	var codes []model.VerificationCode
	if len(shiftIDs) == 0 {
		return codes, nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ? AND status = ? AND is_read = ? AND shift_id IN ?", code, model.CodeActive, false, shiftIDs).
		Order("created_at ASC").
		Find(&codes).Error
	return codes, err
}

func (r *verificationCodeRepo) ListActiveByShift(ctx context.Context, shiftID string) ([]model.VerificationCode, error) {
	var codes []model.VerificationCode
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND status = ? AND is_read = ?", shiftID, model.CodeActive, false).
		Order("created_at ASC").
		Find(&codes).Error
	return codes, err
}

func (r *verificationCodeRepo) MarkUsed(ctx context.Context, codeID, guardID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("code_id = ? AND status = ? AND is_read = ?", codeID, model.CodeActive, false).
		Updates(map[string]interface{}{
			"status":      model.CodeUsed,
			"is_read":     true,
			"verified_at": at,
			"verified_by": guardID,
			"updated_at":  at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}

func (r *verificationCodeRepo) Expire(ctx context.Context, codeID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("code_id = ? AND status = ?", codeID, model.CodeActive).
		Updates(map[string]interface{}{
			"status":     model.CodeExpired,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}

func (r *verificationCodeRepo) ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.VerificationCode{}).
		Where("status = ? AND created_at < ?", model.CodeActive, cutoff).
		Updates(map[string]interface{}{
			"status":     model.CodeExpired,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ── Attendance Repository 实现 ──

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepo) GetByShiftAndStudent(ctx context.Context, shiftID, studentID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND student_id = ?", shiftID, studentID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) GetOpen(ctx context.Context, shiftID, studentID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND student_id = ? AND clock_in_time IS NOT NULL AND clock_out_time IS NULL", shiftID, studentID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) RecordClockIn(ctx context.Context, id string, at time.Time, guardID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_id = ?", id).
		Updates(map[string]interface{}{
			"clock_in_time":        at,
			"clock_in_verified_by": guardID,
			"updated_at":           at,
			"updated_by":           guardID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attendanceRepo) SetClockOut(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_id = ? AND clock_out_time IS NULL", id).
		Updates(map[string]interface{}{
			"clock_out_time": at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}

func (r *attendanceRepo) UpdateStatus(ctx context.Context, id, status, markedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"marked_by_leader": markedBy,
			"updated_at":       time.Now(),
			"updated_by":       markedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attendanceRepo) ListByShift(ctx context.Context, shiftID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("clock_in_time ASC NULLS LAST").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByShiftIDs(ctx context.Context, shiftIDs []string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	if len(shiftIDs) == 0 {
		return records, nil
	}
	err := r.db.WithContext(ctx).
		Where("shift_id IN ?", shiftIDs).
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string, from, to *time.Time) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	db := r.db.WithContext(ctx).
		Preload("Shift").
		Joins("JOIN shifts s ON s.shift_id = attendance_records.shift_id").
		Where("attendance_records.student_id = ?", studentID)
	if from != nil {
		db = db.Where("s.start_time >= ?", *from)
	}
	if to != nil {
		db = db.Where("s.start_time < ?", *to)
	}
	err := db.Order("s.start_time ASC").Find(&records).Error
	return records, err
}

// ── Rating Repository 实现 ──

type ratingRepo struct {
	db *gorm.DB
}

// NewRatingRepo 创建 RatingRepository 实例
func NewRatingRepo(db *gorm.DB) RatingRepository {
	return &ratingRepo{db: db}
}

func (r *ratingRepo) Create(ctx context.Context, submission *model.RatingSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *ratingRepo) ListByStudent(ctx context.Context, studentID string) ([]model.RatingSubmission, error) {
	var list []model.RatingSubmission
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}
