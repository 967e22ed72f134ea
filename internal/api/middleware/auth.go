package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"fitcoach/backend/internal/dto"
	"fitcoach/backend/pkg/response"
)

// Authenticator 访问令牌 → 调用方身份
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*dto.Principal, error)
}

// Auth 认证中间件
// 从 Authorization: Bearer <token> 中提取令牌，交由身份提供方校验并加载本地资料
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		// 将用户信息注入上下文
		c.Set("user_id", principal.UserID)
		c.Set("role", principal.Role)
		c.Set("email", principal.Email)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("role")
		if userRole == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
