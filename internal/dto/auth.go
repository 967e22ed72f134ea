package dto

// Principal 已认证的调用方
type Principal struct {
	UserID string
	Email  string
	Role   string
}

// MeResponse 当前登录用户
type MeResponse struct {
	UserResponse
	CoachCount int64 `json:"coach_count"`
}
