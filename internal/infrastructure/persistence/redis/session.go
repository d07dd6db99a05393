package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/bookmall/pkg/errors"
)

// SessionStore 会话存储
// 设计说明:
// 1. 登录时记录会话(登录时间、IP、角色),登出时删除
// 2. JWT是无状态的,登出后的Access Token靠黑名单失效
// 3. Key设计:bookmall:session:{user_id}、bookmall:blacklist:{sha256(token)}
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("%ssession:%d", keyPrefix, userID)
}

// blacklistKey 对Token取摘要,key长度固定且不在Redis里保存明文Token
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + "blacklist:" + hex.EncodeToString(sum[:])
}

// sessionWriteTimeout 写会话的上限,Redis异常时登录不会被拖住
const sessionWriteTimeout = 2 * time.Second

// SaveSession 保存用户会话,过期时间与Refresh Token一致
// DEL、HSET、EXPIRE走同一个普通管道按顺序执行。
// 不用MULTI/EXEC:Redis返回错误应答(如LOADING)时事务管道会卡在归还连接上。
func (s *SessionStore) SaveSession(ctx context.Context, userID uint, data map[string]interface{}, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, sessionWriteTimeout)
	defer cancel()

	key := sessionKey(userID)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, data)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return redisError(err, "保存会话失败")
	}
	return nil
}

// GetSession 获取用户会话,不存在时返回ErrUnauthorized
func (s *SessionStore) GetSession(ctx context.Context, userID uint) (map[string]string, error) {
	result, err := s.client.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, redisError(err, "获取会话失败")
	}
	if len(result) == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	return result, nil
}

// DeleteSession 删除用户会话(登出)
func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return redisError(err, "删除会话失败")
	}
	return nil
}

// AddToBlacklist 将Token加入黑名单,ttl取Token剩余有效期即可
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // 已经过期的Token不需要拉黑
	}
	if err := s.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return redisError(err, "添加Token到黑名单失败")
	}
	return nil
}

// IsInBlacklist 检查Token是否在黑名单中
func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, redisError(err, "检查黑名单失败")
	}
	return exists > 0, nil
}
