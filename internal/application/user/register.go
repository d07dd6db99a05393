package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/user"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// AdminPolicy 决定注册账号是否获得管理员角色(config.AuthConfig实现)
type AdminPolicy interface {
	IsAdminEmail(email string) bool
}

// RegisterUseCase 用户注册用例
// 设计说明:
// 1. Application层负责用例编排,密码加密、邮箱校验由领域服务完成
// 2. 角色由应用层根据配置的管理员名单决定,领域层不读取配置
type RegisterUseCase struct {
	userService user.Service
	admins      AdminPolicy
	log         *zap.Logger
}

// NewRegisterUseCase 创建注册用例
func NewRegisterUseCase(userService user.Service, admins AdminPolicy, log *zap.Logger) *RegisterUseCase {
	return &RegisterUseCase{userService: userService, admins: admins, log: log}
}

// Execute 执行注册
// 返回应用层DTO,不是领域实体
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	role := user.RoleUser
	if uc.admins.IsAdminEmail(req.Email) {
		role = user.RoleAdmin
	}

	u, err := uc.userService.Register(ctx, req.Email, req.Password, req.Nickname, role)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, uc.log).Info("用户注册成功",
		zap.Uint("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)
	return &RegisterResponse{
		ID:       u.ID,
		Email:    u.Email,
		Nickname: u.Nickname,
		Role:     string(u.Role),
	}, nil
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string
	Password string
	Nickname string
}

// RegisterResponse 注册响应
// 说明:不返回密码字段
type RegisterResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}
