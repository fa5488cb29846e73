package dto

// ── 班次模块 DTO ──

// CreateShiftRequest 创建班次请求
// Date 为 YYYY-MM-DD，StartTime/StopTime 为 HH:MM；StopTime 不晚于 StartTime 时视为跨夜班
type CreateShiftRequest struct {
	ProjectID        string  `json:"project_id"        binding:"required,uuid"`
	Date             string  `json:"date"              binding:"required,datetime=2006-01-02"`
	StartTime        string  `json:"start_time"        binding:"required,datetime=15:04"`
	StopTime         string  `json:"stop_time"         binding:"required,datetime=15:04"`
	RequiredStudents int     `json:"required_students" binding:"required,min=1,max=500"`
	ShiftType        string  `json:"shift_type"        binding:"omitempty,oneof=normal filler"`
	TimeType         string  `json:"time_type"         binding:"omitempty,oneof=day night"`
	Status           string  `json:"status"            binding:"omitempty,oneof=draft published"`
	LeaderID         *string `json:"leader_id"         binding:"omitempty,uuid"`
	GuardID          *string `json:"guard_id"          binding:"omitempty,uuid"`
}

// CreateRecurringShiftsRequest 按 RRULE 批量创建班次
// RRule 例如 "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=8"，StartDate 作为 DTSTART 的日期
type CreateRecurringShiftsRequest struct {
	ProjectID        string  `json:"project_id"        binding:"required,uuid"`
	RRule            string  `json:"rrule"             binding:"required,max=500"`
	StartDate        string  `json:"start_date"        binding:"required,datetime=2006-01-02"`
	StartTime        string  `json:"start_time"        binding:"required,datetime=15:04"`
	StopTime         string  `json:"stop_time"         binding:"required,datetime=15:04"`
	RequiredStudents int     `json:"required_students" binding:"required,min=1,max=500"`
	ShiftType        string  `json:"shift_type"        binding:"omitempty,oneof=normal filler"`
	TimeType         string  `json:"time_type"         binding:"omitempty,oneof=day night"`
	LeaderID         *string `json:"leader_id"         binding:"omitempty,uuid"`
	GuardID          *string `json:"guard_id"          binding:"omitempty,uuid"`
}

// UpdateShiftStatusRequest 变更班次状态
type UpdateShiftStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft published in_progress completed"`
}

// AssignStudentRequest 分配学生到班次
type AssignStudentRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
}

// ShiftListRequest 项目班次查询参数（日期 YYYY-MM-DD，左闭右开）
type ShiftListRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// ── 响应 ──

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID               string  `json:"id"`
	ProjectID        string  `json:"project_id"`
	ProjectName      string  `json:"project_name,omitempty"`
	StartTime        string  `json:"start_time"`
	StopTime         string  `json:"stop_time"`
	DayOfWeek        string  `json:"day_of_week"`
	TimeType         string  `json:"time_type"`
	RequiredStudents int     `json:"required_students"`
	AssignedCount    int     `json:"assigned_count"`
	ShiftType        string  `json:"shift_type"`
	Status           string  `json:"status"`
	LeaderID         *string `json:"leader_id,omitempty"`
	GuardID          *string `json:"guard_id,omitempty"`
}

// AssignmentResponse 班次分配响应
type AssignmentResponse struct {
	ID          string  `json:"id"`
	ShiftID     string  `json:"shift_id"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name,omitempty"`
	Status      string  `json:"status"`
	AssignedBy  string  `json:"assigned_by"`
	AssignedAt  string  `json:"assigned_at"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
}

// MyShiftResponse 学生视角的班次（含分配状态）
type MyShiftResponse struct {
	AssignmentID     string        `json:"assignment_id"`
	AssignmentStatus string        `json:"assignment_status"`
	Shift            ShiftResponse `json:"shift"`
}

// RecurringShiftsResponse 批量创建结果
type RecurringShiftsResponse struct {
	Created int             `json:"created"`
	Shifts  []ShiftResponse `json:"shifts"`
}
