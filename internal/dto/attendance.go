package dto

// ── 签到 / 考勤模块 DTO ──

// ConfirmCodeRequest 安保核验签到码
type ConfirmCodeRequest struct {
	Code string `json:"code" binding:"required,min=4,max=8,alphanum"`
}

// MarkAttendanceRequest 组长标记考勤
type MarkAttendanceRequest struct {
	Status string `json:"status" binding:"required,oneof=present late absent"`
}

// StudentHoursRequest 工时统计区间（日期 YYYY-MM-DD，左闭右开）
type StudentHoursRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// SubmitRatingRequest 组长对学生的班次评分
type SubmitRatingRequest struct {
	StudentID   string  `json:"student_id"  binding:"required,uuid"`
	Rating      float64 `json:"rating"      binding:"required,gte=1,lte=5"`
	Punctuality float64 `json:"punctuality" binding:"gte=0,lte=100"`
}

// SetAvailabilityRequest 直接设置学生可用状态（管理员）
type SetAvailabilityRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// ── 响应 ──

// ClockInResponse 签到请求结果
type ClockInResponse struct {
	Success          bool   `json:"success"`
	VerificationCode string `json:"verification_code,omitempty"`
	Message          string `json:"message,omitempty"`
}

// VerificationStatusResponse 签到核验状态（前端每 3 秒轮询）
type VerificationStatusResponse struct {
	IsVerified bool   `json:"is_verified"`
	Message    string `json:"message,omitempty"`
}

// ConfirmCodeResponse 核验成功后返回的签到信息
type ConfirmCodeResponse struct {
	AttendanceID string `json:"attendance_id"`
	ShiftID      string `json:"shift_id"`
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name,omitempty"`
	ClockInTime  string `json:"clock_in_time"`
}

// PendingCodeResponse 待核验的签到码
type PendingCodeResponse struct {
	CodeID      string `json:"code_id"`
	Code        string `json:"code"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ClockOutResponse 签退结果
type ClockOutResponse struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message,omitempty"`
	ClockOutTime string  `json:"clock_out_time,omitempty"`
	TrackedHours float64 `json:"tracked_hours"`
	LostHours    float64 `json:"lost_hours"`
}

// HoursResult 工时计算结果（小时，保留两位小数）
type HoursResult struct {
	TrackedHours float64 `json:"tracked_hours"`
	LostHours    float64 `json:"lost_hours"`
}

// AttendanceRosterItem 班次考勤名单中的一行
type AttendanceRosterItem struct {
	StudentID        string  `json:"student_id"`
	StudentName      string  `json:"student_name,omitempty"`
	AssignmentStatus string  `json:"assignment_status,omitempty"`
	AttendanceID     string  `json:"attendance_id,omitempty"`
	Status           string  `json:"status"`
	ClockInTime      *string `json:"clock_in_time,omitempty"`
	ClockOutTime     *string `json:"clock_out_time,omitempty"`
	TrackedHours     float64 `json:"tracked_hours"`
	LostHours        float64 `json:"lost_hours"`
}

// ShiftAttendanceResponse 班次考勤汇总
type ShiftAttendanceResponse struct {
	Shift        ShiftResponse          `json:"shift"`
	Items        []AttendanceRosterItem `json:"items"`
	TotalTracked float64                `json:"total_tracked_hours"`
	TotalLost    float64                `json:"total_lost_hours"`
}

// StudentHoursResponse 学生工时汇总
type StudentHoursResponse struct {
	StudentID    string  `json:"student_id"`
	Shifts       int     `json:"shifts"`
	TrackedHours float64 `json:"tracked_hours"`
	LostHours    float64 `json:"lost_hours"`
}

// PenaltyDetails 惩罚前后的分数
type PenaltyDetails struct {
	PreviousRating      float64 `json:"previous_rating"`
	NewRating           float64 `json:"new_rating"`
	PreviousPunctuality float64 `json:"previous_punctuality"`
	NewPunctuality      float64 `json:"new_punctuality"`
}

// RatingResponse 评分提交结果
type RatingResponse struct {
	SubmissionID         string  `json:"submission_id"`
	StudentID            string  `json:"student_id"`
	ResultingRating      float64 `json:"resulting_rating"`
	ResultingPunctuality float64 `json:"resulting_punctuality"`
}
