package user

import (
	"context"
)

// Repository 用户仓储接口
// 账号只有注册和登录两个入口,角色在注册时按管理员名单确定后不再变更,
// 所以仓储只提供创建和查询。
type Repository interface {
	// Create 创建用户,邮箱重复返回ErrEmailDuplicate(由UNIQUE索引保证)
	Create(ctx context.Context, user *User) error

	// FindByID 不存在返回ErrUserNotFound
	FindByID(ctx context.Context, id uint) (*User, error)

	// FindByEmail 登录用,不存在返回ErrUserNotFound
	FindByEmail(ctx context.Context, email string) (*User, error)
}
