package model

import "fmt"

// ── 状态取值 ──

// 班次状态
const (
	ShiftDraft      = "draft"
	ShiftPublished  = "published"
	ShiftInProgress = "in_progress"
	ShiftCompleted  = "completed"
)

// 分配状态
// confirmed 保留在模型中，当前没有任何流程将分配置为 confirmed
const (
	AssignmentPending   = "pending"
	AssignmentAssigned  = "assigned"
	AssignmentConfirmed = "confirmed"
	AssignmentCompleted = "completed"
	AssignmentCancelled = "cancelled"
)

// 签到码状态
const (
	CodeActive  = "active"
	CodeUsed    = "used"
	CodeExpired = "expired"
)

// 考勤状态
const (
	AttendancePending = "pending"
	AttendancePresent = "present"
	AttendanceLate    = "late"
	AttendanceAbsent  = "absent"
)

// 申请状态
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// ActiveAssignmentStatuses 视为"占用名额"的分配状态
var ActiveAssignmentStatuses = []string{AssignmentPending, AssignmentAssigned, AssignmentConfirmed}

// ── 状态机 ──

// TransitionError 非法状态流转
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s 状态不允许从 %s 变更为 %s", e.Entity, e.From, e.To)
}

// StateMachine 单个实体的状态流转表
type StateMachine struct {
	entity      string
	transitions map[string][]string
}

// NewStateMachine 创建状态机，transitions 为 from → 允许的 to 列表
func NewStateMachine(entity string, transitions map[string][]string) StateMachine {
	return StateMachine{entity: entity, transitions: transitions}
}

// Allows 判断 from → to 是否合法
func (m StateMachine) Allows(from, to string) bool {
	for _, s := range m.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Check 非法流转时返回 *TransitionError
func (m StateMachine) Check(from, to string) error {
	if m.Allows(from, to) {
		return nil
	}
	return &TransitionError{Entity: m.entity, From: from, To: to}
}

// Sources 返回可流转到 to 的全部前置状态，供条件更新的 WHERE status IN (...) 使用
func (m StateMachine) Sources(to string) []string {
	var out []string
	for from, targets := range m.transitions {
		for _, t := range targets {
			if t == to {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

var (
	ShiftStates = NewStateMachine("shift", map[string][]string{
		ShiftDraft:      {ShiftPublished},
		ShiftPublished:  {ShiftInProgress, ShiftCompleted},
		ShiftInProgress: {ShiftCompleted},
	})

	AssignmentStates = NewStateMachine("assignment", map[string][]string{
		AssignmentPending:   {AssignmentAssigned, AssignmentCancelled},
		AssignmentAssigned:  {AssignmentConfirmed, AssignmentCompleted, AssignmentCancelled},
		AssignmentConfirmed: {AssignmentCompleted, AssignmentCancelled},
	})

	CodeStates = NewStateMachine("verification_code", map[string][]string{
		CodeActive: {CodeUsed, CodeExpired},
	})

	AttendanceStates = NewStateMachine("attendance", map[string][]string{
		AttendancePending: {AttendancePresent, AttendanceLate, AttendanceAbsent},
		AttendancePresent: {AttendanceLate, AttendanceAbsent},
		AttendanceLate:    {AttendancePresent, AttendanceAbsent},
		AttendanceAbsent:  {AttendancePresent, AttendanceLate},
	})

	RequestStates = NewStateMachine("admin_request", map[string][]string{
		RequestPending: {RequestApproved, RequestRejected},
	})
)
