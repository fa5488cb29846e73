package dto

// ── 申请 / 审批模块 DTO ──

// CreateCancellationRequest 取消班次申请（学生、组长或安保发起）
type CreateCancellationRequest struct {
	ShiftID          string `json:"shift_id"          binding:"required,uuid"`
	Reason           string `json:"reason"            binding:"required,min=2,max=1000"`
	ReplacementEmail string `json:"replacement_email" binding:"omitempty,email"`
}

// ApplyFillerRequest 补位班次报名
type ApplyFillerRequest struct {
	ShiftID string `json:"shift_id" binding:"required,uuid"`
}

// AvailabilityChangeRequest 可用状态变更申请
type AvailabilityChangeRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
	Reason string `json:"reason" binding:"max=1000"`
}

// ApproveRequestInput 审批通过参数
// 取消申请必须提供替班人邮箱（可沿用申请中填写的邮箱）
type ApproveRequestInput struct {
	ReplacementEmail string `json:"replacement_email" binding:"omitempty,email"`
	ShouldPenalize   bool   `json:"should_penalize"`
}

// RejectRequestInput 驳回参数
type RejectRequestInput struct {
	Note string `json:"note" binding:"max=500"`
}

// AdminRequestListRequest 审批列表查询参数
// ProjectID 为空时汇总管理员名下全部项目；Status 为空默认 pending，all 表示不过滤
type AdminRequestListRequest struct {
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	Search    string `form:"search"     binding:"omitempty,max=50"`
	Status    string `form:"status"     binding:"omitempty,oneof=pending approved rejected all"`
}

// RequestStatsRequest 审批进度统计参数
type RequestStatsRequest struct {
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	From      string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         binding:"omitempty,datetime=2006-01-02"`
}

// ── 响应 ──

// RequestCreatedResponse 申请提交结果
type RequestCreatedResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestStatsResponse 审批进度
type RequestStatsResponse struct {
	TotalRequests      int64 `json:"total_requests"`
	ReviewedRequests   int64 `json:"reviewed_requests"`
	ProgressPercentage int   `json:"progress_percentage"`
}

// RequesterBrief 申请人简要信息
type RequesterBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AdminRequestResponse 审批申请响应
type AdminRequestResponse struct {
	ID               string          `json:"id"`
	RequestType      string          `json:"request_type"`
	Status           string          `json:"status"`
	Requester        *RequesterBrief `json:"requester,omitempty"`
	Shift            *ShiftResponse  `json:"shift,omitempty"`
	AssignmentID     *string         `json:"assignment_id,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	ReplacementEmail string          `json:"replacement_email,omitempty"`
	RequestedStatus  string          `json:"requested_status,omitempty"`
	ReviewedBy       *string         `json:"reviewed_by,omitempty"`
	ReviewedAt       *string         `json:"reviewed_at,omitempty"`
	ReviewNote       string          `json:"review_note,omitempty"`
	Penalized        bool            `json:"penalized"`
	CreatedAt        string          `json:"created_at"`
}

// ReviewResult 审批处理结果
type ReviewResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	PenaltyDetails *PenaltyDetails `json:"penalty_details,omitempty"`
}
