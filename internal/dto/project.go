package dto

// ── 项目模块 DTO ──

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string  `json:"name"        binding:"required,min=2,max=100"`
	Description string  `json:"description" binding:"max=1000"`
	ClientID    *string `json:"client_id"   binding:"omitempty,uuid"`
}

// AddMemberRequest 添加项目成员请求，成员角色取自用户角色
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// ── 响应 ──

// ProjectResponse 项目响应
type ProjectResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	OwnerID     string  `json:"owner_id"`
	ClientID    *string `json:"client_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// MemberResponse 项目成员响应
type MemberResponse struct {
	MembershipID string `json:"membership_id"`
	ProjectID    string `json:"project_id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	MemberRole   string `json:"member_role"`
	Status       string `json:"status"`
}

// ProjectHealthResponse 客户视角的项目健康度
type ProjectHealthResponse struct {
	ProjectID       string         `json:"project_id"`
	TotalShifts     int            `json:"total_shifts"`
	ShiftsByStatus  map[string]int `json:"shifts_by_status"`
	RequiredSlots   int            `json:"required_slots"`
	FilledSlots     int            `json:"filled_slots"`
	FillRate        float64        `json:"fill_rate"` // 百分比
	PresentCount    int            `json:"present_count"`
	LateCount       int            `json:"late_count"`
	AbsentCount     int            `json:"absent_count"`
	AttendanceRate  float64        `json:"attendance_rate"` // (present+late)/已判定记录，百分比
	PendingRequests int64          `json:"pending_requests"`
}
