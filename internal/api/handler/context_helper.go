package handler

import (
	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果认证中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetPrincipal 组装当前调用方身份，email 缺失时留空
func MustGetPrincipal(c *gin.Context) (dto.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return dto.Principal{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return dto.Principal{}, false
	}
	return dto.Principal{UserID: userID, Email: c.GetString("email"), Role: role}, true
}
