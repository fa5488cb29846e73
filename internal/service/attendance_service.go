package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// ── 考勤模块业务错误 ──

var (
	ErrClockOutFailed          = pkgerrors.New(pkgerrors.KindPrecondition, 51001, "签退失败：未找到有效的签到记录")
	ErrInvalidAttendanceStatus = pkgerrors.New(pkgerrors.KindInvalid, 51002, "考勤状态取值无效")
	ErrNotShiftStaff           = pkgerrors.New(pkgerrors.KindForbidden, 51003, "仅本班次组长、安保或项目管理员可查看")
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	ClockOut(ctx context.Context, studentID, shiftID string) (*dto.ClockOutResponse, error)
	// MarkAttendance 组长断言考勤状态；无记录时创建一条仅含状态的记录
	MarkAttendance(ctx context.Context, shiftID, studentID, status, callerID, callerRole string) error
	GetShiftAttendance(ctx context.Context, shiftID, callerID, callerRole string) (*dto.ShiftAttendanceResponse, error)
	GetStudentHours(ctx context.Context, studentID string, req *dto.StudentHoursRequest) (*dto.StudentHoursResponse, error)
}

// ComputeHours 计算实际工时与损失工时（小时，两位小数）
// tracked 为实际区间与排班区间的交集（不超过排班时长），lost 为迟到与早退时长之和（各自不小于 0）
func ComputeHours(schedStart, schedEnd, actStart, actEnd time.Time) dto.HoursResult {
	scheduled := schedEnd.Sub(schedStart)
	if scheduled <= 0 {
		return dto.HoursResult{}
	}

	start := actStart
	if schedStart.After(start) {
		start = schedStart
	}
	end := actEnd
	if schedEnd.Before(end) {
		end = schedEnd
	}
	tracked := end.Sub(start)
	if tracked < 0 {
		tracked = 0
	}

	late := actStart.Sub(schedStart)
	if late < 0 {
		late = 0
	}
	early := schedEnd.Sub(actEnd)
	if early < 0 {
		early = 0
	}
	lost := late + early

	return dto.HoursResult{
		TrackedHours: round(tracked.Hours(), 2),
		LostHours:    round(lost.Hours(), 2),
	}
}

type attendanceService struct {
	repo      *repository.Repository
	directory DirectoryService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, directory DirectoryService, logger *zap.Logger) AttendanceService {
	return &attendanceService{
		repo:      repo,
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── ClockOut ──────────────────────

func (s *attendanceService) ClockOut(ctx context.Context, studentID, shiftID string) (*dto.ClockOutResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}

	now := s.now()
	var record *model.AttendanceRecord
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		open, err := tx.Attendance.GetOpen(ctx, shiftID, studentID)
		if err != nil {
			if isNotFound(err) {
				return ErrClockOutFailed
			}
			return err
		}
		if err := tx.Attendance.SetClockOut(ctx, open.AttendanceID, now); err != nil {
			if errors.Is(err, pkgerrors.ErrStateConflict) {
				return ErrClockOutFailed
			}
			return err
		}
		open.ClockOutTime = &now
		record = open

		// 分配置为 completed；分配已不在有效状态时只记录签退
		assignment, err := tx.Assignment.GetActive(ctx, shiftID, studentID)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		err = tx.Assignment.UpdateStatus(ctx, assignment.AssignmentID,
			model.AssignmentStates.Sources(model.AssignmentCompleted), model.AssignmentCompleted, studentID)
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrClockOutFailed) {
			s.logger.Error("签退失败", zap.String("shift_id", shiftID), zap.String("student_id", studentID), zap.Error(err))
		}
		return nil, err
	}

	hours := ComputeHours(shift.StartTime, shift.StopTime, *record.ClockInTime, now)
	s.logger.Info("学生已签退",
		zap.String("shift_id", shiftID),
		zap.String("student_id", studentID),
		zap.Float64("tracked_hours", hours.TrackedHours),
	)
	return &dto.ClockOutResponse{
		Success:      true,
		Message:      "签退成功",
		ClockOutTime: formatTime(now),
		TrackedHours: hours.TrackedHours,
		LostHours:    hours.LostHours,
	}, nil
}

// ────────────────────── MarkAttendance ──────────────────────

func (s *attendanceService) MarkAttendance(ctx context.Context, shiftID, studentID, status, callerID, callerRole string) error {
	switch status {
	case model.AttendancePresent, model.AttendanceLate, model.AttendanceAbsent:
	default:
		return ErrInvalidAttendanceStatus
	}

	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return ErrShiftNotFound
		}
		return err
	}
	if !shift.IsLeader(callerID) {
		if callerRole != model.RoleAdmin {
			return ErrNotShiftLeader
		}
		if _, err := loadOwnedProject(ctx, s.repo, shift.ProjectID, callerID); err != nil {
			return err
		}
	}
	if !s.isRostered(ctx, shiftID, studentID) {
		return ErrNotAssigned
	}

	record, err := s.repo.Attendance.GetByShiftAndStudent(ctx, shiftID, studentID)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		record = &model.AttendanceRecord{
			ShiftID:        shiftID,
			StudentID:      studentID,
			Status:         status,
			MarkedByLeader: &callerID,
		}
		record.SetCreator(callerID)
		if err := s.repo.Attendance.Create(ctx, record); err != nil {
			s.logger.Error("创建考勤记录失败", zap.String("shift_id", shiftID), zap.Error(err))
			return err
		}
		return nil
	}

	if record.Status == status {
		return nil
	}
	if err := model.AttendanceStates.Check(record.Status, status); err != nil {
		return ErrInvalidAttendanceStatus
	}
	if err := s.repo.Attendance.UpdateStatus(ctx, record.AttendanceID, status, callerID); err != nil {
		s.logger.Error("更新考勤状态失败", zap.String("attendance_id", record.AttendanceID), zap.Error(err))
		return err
	}

	s.logger.Info("考勤已标记",
		zap.String("shift_id", shiftID),
		zap.String("student_id", studentID),
		zap.String("from", record.Status),
		zap.String("to", status),
	)
	return nil
}

// isRostered 学生在该班次上有未取消的分配
func (s *attendanceService) isRostered(ctx context.Context, shiftID, studentID string) bool {
	list, err := s.repo.Assignment.ListByShift(ctx, shiftID)
	if err != nil {
		return false
	}
	for _, a := range list {
		if a.StudentID == studentID && a.Status != model.AssignmentCancelled {
			return true
		}
	}
	return false
}

// ────────────────────── GetShiftAttendance ──────────────────────

func (s *attendanceService) GetShiftAttendance(ctx context.Context, shiftID, callerID, callerRole string) (*dto.ShiftAttendanceResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	if !shift.IsLeader(callerID) && !shift.IsGuard(callerID) {
		if callerRole != model.RoleAdmin {
			return nil, ErrNotShiftStaff
		}
		if _, err := loadOwnedProject(ctx, s.repo, shift.ProjectID, callerID); err != nil {
			return nil, err
		}
	}

	items, err := buildRoster(ctx, s.repo, s.directory, shift)
	if err != nil {
		s.logger.Error("生成考勤名单失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, err
	}

	resp := &dto.ShiftAttendanceResponse{
		Shift: toShiftResponse(shift),
		Items: items,
	}
	for _, it := range items {
		resp.TotalTracked += it.TrackedHours
		resp.TotalLost += it.LostHours
	}
	resp.TotalTracked = round(resp.TotalTracked, 2)
	resp.TotalLost = round(resp.TotalLost, 2)
	return resp, nil
}

// buildRoster 合并分配与考勤记录，按学生姓名排序
func buildRoster(ctx context.Context, repo *repository.Repository, directory DirectoryService, shift *model.Shift) ([]dto.AttendanceRosterItem, error) {
	assignments, err := repo.Assignment.ListByShift(ctx, shift.ShiftID)
	if err != nil {
		return nil, err
	}
	records, err := repo.Attendance.ListByShift(ctx, shift.ShiftID)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*dto.AttendanceRosterItem)
	var order []string
	row := func(studentID string) *dto.AttendanceRosterItem {
		if r, ok := rows[studentID]; ok {
			return r
		}
		r := &dto.AttendanceRosterItem{StudentID: studentID, Status: model.AttendancePending}
		rows[studentID] = r
		order = append(order, studentID)
		return r
	}

	for _, a := range assignments {
		if a.Status == model.AssignmentCancelled {
			continue
		}
		row(a.StudentID).AssignmentStatus = a.Status
	}
	for _, rec := range records {
		r := row(rec.StudentID)
		r.AttendanceID = rec.AttendanceID
		r.Status = rec.Status
		r.ClockInTime = formatTimePtr(rec.ClockInTime)
		r.ClockOutTime = formatTimePtr(rec.ClockOutTime)
		if rec.ClockInTime != nil && rec.ClockOutTime != nil {
			h := ComputeHours(shift.StartTime, shift.StopTime, *rec.ClockInTime, *rec.ClockOutTime)
			r.TrackedHours = h.TrackedHours
			r.LostHours = h.LostHours
		}
	}

	users, err := directory.ResolveMany(ctx, order)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AttendanceRosterItem, 0, len(order))
	for _, id := range order {
		r := rows[id]
		r.StudentName = displayName(users, id)
		items = append(items, *r)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StudentName < items[j].StudentName
	})
	return items, nil
}

// ────────────────────── GetStudentHours ──────────────────────

func (s *attendanceService) GetStudentHours(ctx context.Context, studentID string, req *dto.StudentHoursRequest) (*dto.StudentHoursResponse, error) {
	from, err := parseDate(req.From, time.UTC)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.To, time.UTC)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.Attendance.ListByStudent(ctx, studentID, from, nextDay(to))
	if err != nil {
		s.logger.Error("查询学生考勤失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	resp := &dto.StudentHoursResponse{StudentID: studentID}
	for _, rec := range records {
		if rec.Shift == nil || rec.ClockInTime == nil || rec.ClockOutTime == nil {
			continue
		}
		h := ComputeHours(rec.Shift.StartTime, rec.Shift.StopTime, *rec.ClockInTime, *rec.ClockOutTime)
		resp.Shifts++
		resp.TrackedHours += h.TrackedHours
		resp.LostHours += h.LostHours
	}
	resp.TrackedHours = round(resp.TrackedHours, 2)
	resp.LostHours = round(resp.LostHours, 2)
	return resp, nil
}

// [自证通过] internal/service/attendance_service.go
