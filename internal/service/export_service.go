package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/model"
	"github.com/purelyricky/avashift-com-sub000/internal/repository"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRows       = pkgerrors.New(pkgerrors.KindPrecondition, 51101, "没有可导出的考勤数据")
	ErrExportGenerateFail = pkgerrors.New(pkgerrors.KindInternal, 51102, "生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 时间按班次时区展示
type ExportService interface {
	// ExportShiftAttendance 单个班次的考勤名单
	ExportShiftAttendance(ctx context.Context, shiftID, callerID, callerRole string) (*bytes.Buffer, string, error)
	// ExportProjectAttendance 项目在日期区间内全部班次的考勤，每个班次一段
	ExportProjectAttendance(ctx context.Context, projectID string, req *dto.ShiftListRequest, adminID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg       *config.Config
	repo      *repository.Repository
	directory DirectoryService
	logger    *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, repo *repository.Repository, directory DirectoryService, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, directory: directory, logger: logger}
}

var attendanceHeaders = []string{"日期", "时段", "学生", "分配状态", "考勤状态", "签到", "签退", "实际工时", "损失工时"}

var attendanceLabels = map[string]string{
	model.AttendancePending: "待定",
	model.AttendancePresent: "出勤",
	model.AttendanceLate:    "迟到",
	model.AttendanceAbsent:  "缺勤",
}

// ═══════════════════════════════════════════════════════════
// ExportShiftAttendance 导出班次考勤为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "考勤"
//   - 第 1 行标题：项目名 + 班次时间
//   - 第 2 行表头，之后每名学生一行，末行合计

func (s *exportService) ExportShiftAttendance(ctx context.Context, shiftID, callerID, callerRole string) (*bytes.Buffer, string, error) {
	shift, err := s.repo.Shift.GetByID(ctx, shiftID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrShiftNotFound
		}
		return nil, "", err
	}
	if !shift.IsLeader(callerID) {
		if callerRole != model.RoleAdmin {
			return nil, "", ErrNotShiftLeader
		}
		if _, err := loadOwnedProject(ctx, s.repo, shift.ProjectID, callerID); err != nil {
			return nil, "", err
		}
	}

	items, err := buildRoster(ctx, s.repo, s.directory, shift)
	if err != nil {
		s.logger.Error("生成考勤名单失败", zap.String("shift_id", shiftID), zap.Error(err))
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, "", ErrExportNoRows
	}

	loc := s.cfg.Shift.Location()
	title := fmt.Sprintf("%s %s", projectName(shift), shift.StartTime.In(loc).Format("2006-01-02 15:04"))

	buf, err := s.render(title, []shiftRoster{{shift: shift, items: items}})
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("考勤_%s_%s.xlsx", projectName(shift), shift.StartTime.In(loc).Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportProjectAttendance 导出项目考勤汇总
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportProjectAttendance(ctx context.Context, projectID string, req *dto.ShiftListRequest, adminID string) (*bytes.Buffer, string, error) {
	project, err := loadOwnedProject(ctx, s.repo, projectID, adminID)
	if err != nil {
		return nil, "", err
	}
	loc := s.cfg.Shift.Location()
	from, err := parseDate(req.From, loc)
	if err != nil {
		return nil, "", err
	}
	to, err := parseDate(req.To, loc)
	if err != nil {
		return nil, "", err
	}

	shifts, err := s.repo.Shift.ListByProject(ctx, projectID, from, nextDay(to))
	if err != nil {
		s.logger.Error("查询项目班次失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, "", err
	}

	var rosters []shiftRoster
	for i := range shifts {
		shifts[i].Project = project
		items, err := buildRoster(ctx, s.repo, s.directory, &shifts[i])
		if err != nil {
			return nil, "", err
		}
		if len(items) > 0 {
			rosters = append(rosters, shiftRoster{shift: &shifts[i], items: items})
		}
	}
	if len(rosters) == 0 {
		return nil, "", ErrExportNoRows
	}

	buf, err := s.render(project.Name+" 考勤汇总", rosters)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("考勤汇总_%s.xlsx", project.Name), nil
}

type shiftRoster struct {
	shift *model.Shift
	items []dto.AttendanceRosterItem
}

// render 把若干班次名单写入同一个 Sheet
func (s *exportService) render(title string, rosters []shiftRoster) (*bytes.Buffer, error) {
	loc := s.cfg.Shift.Location()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "考勤"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", "C", 16)
	f.SetColWidth(sheetName, "D", "G", 12)
	f.SetColWidth(sheetName, "H", "I", 10)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(len(attendanceHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range attendanceHeaders {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(attendanceHeaders)-1), row), headerStyle)

	// 数据行
	row = 3
	var totalTracked, totalLost float64
	for _, r := range rosters {
		date := r.shift.StartTime.In(loc).Format("2006-01-02")
		window := fmt.Sprintf("%s-%s", r.shift.StartTime.In(loc).Format("15:04"), r.shift.StopTime.In(loc).Format("15:04"))
		for _, it := range r.items {
			f.SetCellValue(sheetName, cell("A", row), date)
			f.SetCellValue(sheetName, cell("B", row), window)
			f.SetCellValue(sheetName, cell("C", row), it.StudentName)
			f.SetCellValue(sheetName, cell("D", row), it.AssignmentStatus)
			f.SetCellValue(sheetName, cell("E", row), attendanceLabels[it.Status])
			f.SetCellValue(sheetName, cell("F", row), clockText(it.ClockInTime, loc))
			f.SetCellValue(sheetName, cell("G", row), clockText(it.ClockOutTime, loc))
			f.SetCellValue(sheetName, cell("H", row), it.TrackedHours)
			f.SetCellValue(sheetName, cell("I", row), it.LostHours)
			totalTracked += it.TrackedHours
			totalLost += it.LostHours
			row++
		}
	}

	// 合计
	f.SetCellValue(sheetName, cell("A", row), "合计")
	f.SetCellValue(sheetName, cell("H", row), round(totalTracked, 2))
	f.SetCellValue(sheetName, cell("I", row), round(totalLost, 2))

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}

// ── 辅助函数 ──

func projectName(shift *model.Shift) string {
	if shift.Project != nil {
		return shift.Project.Name
	}
	return shift.ProjectID
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// clockText 名单中的 RFC3339 时间转为班次时区的 HH:MM
func clockText(v *string, loc *time.Location) string {
	if v == nil {
		return "-"
	}
	t, err := time.Parse(timeLayout, *v)
	if err != nil {
		return *v
	}
	return t.In(loc).Format("15:04")
}
