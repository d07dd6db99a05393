package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookmall/internal/domain/user"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/jwt"
	"github.com/xiebiao/bookmall/pkg/response"
)

// gin.Context中的键
const (
	ctxUserID      = "user_id"
	ctxEmail       = "email"
	ctxNickname    = "nickname"
	ctxRole        = "role"
	ctxAccessToken = "access_token"
)

// TokenBlacklist 登出后失效的Token(由Redis会话存储实现)
type TokenBlacklist interface {
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware JWT认证中间件
// 设计说明：
// 1. 从Header提取Token
// 2. 验证Token有效性（只接受Access Token）
// 3. 检查Token黑名单
// 4. 将用户身份和角色注入Context
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  TokenBlacklist
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  blacklist,
	}
}

// RequireAuth 要求登录
// 使用方式：
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
//	authorized.POST("/orders", orderHandler.CreateOrder)
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 格式：Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Error(c, apperrors.ErrInvalidToken.WithMessage("Token格式错误"))
			c.Abort()
			return
		}
		tokenString := parts[1]

		// 先验签再查黑名单：伪造的Token不需要打到Redis
		claims, err := m.jwtManager.ParseAccessToken(tokenString)
		if err != nil {
			response.Error(c, err) // ErrTokenExpired、ErrInvalidToken
			c.Abort()
			return
		}

		revoked, err := m.blacklist.IsInBlacklist(c.Request.Context(), tokenString)
		if err != nil {
			response.Error(c, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "验证Token失败"))
			c.Abort()
			return
		}
		if revoked {
			response.Error(c, apperrors.ErrTokenExpired.WithMessage("Token已失效，请重新登录"))
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxNickname, claims.Nickname)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxAccessToken, tokenString)

		c.Next()
	}
}

// RequireAdmin 要求管理员角色，必须挂在RequireAuth之后
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Actor(c).IsAdmin() {
			response.Error(c, apperrors.ErrForbidden.WithMessage("需要管理员权限"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth 可选登录
// 说明：有合法Token时注入身份（例如管理员在评论列表里能看到已隐藏的评论），没有则作为匿名用户继续
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			claims, err := m.jwtManager.ParseAccessToken(parts[1])
			if err == nil {
				revoked, bErr := m.blacklist.IsInBlacklist(c.Request.Context(), parts[1])
				if bErr == nil && !revoked {
					c.Set(ctxUserID, claims.UserID)
					c.Set(ctxRole, claims.Role)
				}
			}
		}
		c.Next()
	}
}

// =========================================
// Context辅助函数（供Handler使用）
// =========================================

// GetUserID 从Context获取当前登录用户ID，未登录返回0
func GetUserID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

// GetAccessToken 当前请求携带的Access Token（登出时加入黑名单）
func GetAccessToken(c *gin.Context) string {
	return c.GetString(ctxAccessToken)
}

// Actor 当前请求的操作者（用户ID + 角色）
// 匿名请求返回零值Actor，它既不是任何订单的所有者也不是管理员
func Actor(c *gin.Context) user.Actor {
	return user.Actor{
		UserID: GetUserID(c),
		Role:   user.Role(c.GetString(ctxRole)),
	}
}
