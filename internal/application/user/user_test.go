package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xiebiao/bookmall/internal/domain/user"
	"github.com/xiebiao/bookmall/internal/infrastructure/config"
	"github.com/xiebiao/bookmall/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookmall/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/jwt"
)

type fixture struct {
	mr       *miniredis.Miniredis
	sessions *redis.SessionStore
	jwt      *jwt.Manager
	register *RegisterUseCase
	login    *LoginUseCase
	logout   *LogoutUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := mysql.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), mysql.PoolOptions{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zap.NewNop()
	svc := user.NewService(mysql.NewUserRepository(db), user.WithBcryptCost(bcrypt.MinCost))
	sessions := redis.NewSessionStore(client)
	manager := jwt.NewManager("user-usecase-test-secret", time.Hour, 24*time.Hour)
	admins := config.AuthConfig{AdminEmails: []string{"root@bookmall.dev"}}

	return &fixture{
		mr:       mr,
		sessions: sessions,
		jwt:      manager,
		register: NewRegisterUseCase(svc, admins, log),
		login:    NewLoginUseCase(svc, manager, sessions, 24*time.Hour, log),
		logout:   NewLogoutUseCase(manager, sessions),
	}
}

func TestRegister_AssignsRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reader, err := f.register.Execute(ctx, RegisterRequest{Email: "reader@bookmall.dev", Password: "reader1234", Nickname: "读者"})
	require.NoError(t, err)
	assert.Equal(t, "user", reader.Role)

	root, err := f.register.Execute(ctx, RegisterRequest{Email: "ROOT@bookmall.dev", Password: "admin1234", Nickname: "管理员"})
	require.NoError(t, err)
	assert.Equal(t, "admin", root.Role)

	_, err = f.register.Execute(ctx, RegisterRequest{Email: "reader@bookmall.dev", Password: "reader1234", Nickname: "又一个"})
	assert.ErrorIs(t, err, apperrors.ErrEmailDuplicate)
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, RegisterRequest{Email: "root@bookmall.dev", Password: "admin1234", Nickname: "管理员"})
	require.NoError(t, err)

	_, err = f.login.Execute(ctx, LoginRequest{Email: "root@bookmall.dev", Password: "wrong1234"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	resp, err := f.login.Execute(ctx, LoginRequest{Email: "root@bookmall.dev", Password: "admin1234", ClientIP: "10.0.0.8"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.User.Role)

	claims, err := f.jwt.ParseAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	session, err := f.sessions.GetSession(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.8", session["ip"])
	assert.Equal(t, "admin", session["role"])

	require.NoError(t, f.logout.Execute(ctx, resp.User.ID, resp.AccessToken))

	revoked, err := f.sessions.IsInBlacklist(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)
	_, err = f.sessions.GetSession(ctx, resp.User.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// 黑名单保留到Token原本的过期时间
	f.mr.FastForward(61 * time.Minute)
	revoked, err = f.sessions.IsInBlacklist(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestLogin_SessionFailureDoesNotBlockLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.register.Execute(ctx, RegisterRequest{Email: "reader@bookmall.dev", Password: "reader1234", Nickname: "读者"})
	require.NoError(t, err)

	f.mr.SetError("redis unavailable")
	resp, err := f.login.Execute(ctx, LoginRequest{Email: "reader@bookmall.dev", Password: "reader1234"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}
