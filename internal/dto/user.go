package dto

// ── 用户管理请求 ──

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	Name     string `json:"name"     binding:"required,max=120"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role"     binding:"required,oneof=admin coach user"`
}

// UpdateUserRequest 更新用户资料
type UpdateUserRequest struct {
	Name  *string `json:"name"  binding:"omitempty,max=120"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// UpdateRoleRequest 修改角色
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin coach user"`
}

// AssignCoachesRequest 为学员分配教练
type AssignCoachesRequest struct {
	CoachIDs []string `json:"coach_ids" binding:"required,min=1,dive,uuid"`
}

// UserListRequest 用户列表查询
type UserListRequest struct {
	PaginationRequest
	Role     string `form:"role"      binding:"omitempty,oneof=admin coach user"`
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"    binding:"omitempty,max=100"`
}

// ── 用户响应 ──

// UserResponse 用户信息
type UserResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          string  `json:"role"`
	IsActive      bool    `json:"is_active"`
	DeactivatedAt *string `json:"deactivated_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// AssignCoachesResponse 教练分配结果
type AssignCoachesResponse struct {
	UserID   string                 `json:"user_id"`
	Coaches  []CoachSummaryResponse `json:"coaches"`
	AddedIDs []string               `json:"added_ids"`
}

// AdminOverviewResponse 管理端总览计数
type AdminOverviewResponse struct {
	TotalUsers    int64 `json:"total_users"`
	TotalCoaches  int64 `json:"total_coaches"`
	TotalWorkouts int64 `json:"total_workouts"`
	ActiveUsers   int64 `json:"active_users"`
	InactiveUsers int64 `json:"inactive_users"`
}
