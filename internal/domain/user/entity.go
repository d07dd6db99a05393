package user

import (
	"time"
)

// Role 用户角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid 是否为已定义的角色
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User 用户实体（聚合根）
// DDD设计说明：
// 1. User是用户聚合的根实体，包含用户的核心属性
// 2. 密码已加密存储（bcrypt），不应该有GetPassword()等方法暴露明文
// 3. 领域实体不依赖GORM tag（infrastructure层的Repository实现时会处理映射）
// 4. Role决定订单取消、状态变更、评论审核等管理操作的权限
type User struct {
	ID        uint
	Email     string
	Password  string // bcrypt哈希值
	Nickname  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户（工厂方法）
// hashedPassword必须是bcrypt加密后的密码，role非法时按普通用户处理
func NewUser(email, hashedPassword, nickname string, role Role) *User {
	if !role.IsValid() {
		role = RoleUser
	}
	now := time.Now()
	return &User{
		Email:     email,
		Password:  hashedPassword,
		Nickname:  nickname,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateNickname 更新昵称（领域行为）
func (u *User) UpdateNickname(nickname string) {
	u.Nickname = nickname
	u.UpdatedAt = time.Now()
}

// Actor 发起操作的用户(来自Access Token的身份)
// 应用层据此做"本人或管理员"的权限判断,不需要再查库
type Actor struct {
	UserID uint
	Role   Role
}

// IsAdmin 是否为管理员
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
