package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	Role string `form:"role" binding:"required,oneof=admin leader guard student client"`
}
