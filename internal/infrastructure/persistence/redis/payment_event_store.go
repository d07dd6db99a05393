package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PaymentEventStore 支付回调去重
// 支付网关至少投递一次,同一个event_id可能到达多次;
// SETNX成功的那一次才处理,处理失败时Release让网关重试
type PaymentEventStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPaymentEventStore 创建支付事件存储,ttl覆盖网关的最长重试窗口
func NewPaymentEventStore(client *redis.Client, ttl time.Duration) *PaymentEventStore {
	return &PaymentEventStore{client: client, ttl: ttl}
}

func paymentEventKey(eventID string) string {
	return keyPrefix + "payment_event:" + eventID
}

// MarkProcessing 占用event_id,返回false表示该事件已处理过(或正在处理)
func (s *PaymentEventStore) MarkProcessing(ctx context.Context, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, paymentEventKey(eventID), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, redisError(err, "支付事件去重失败")
	}
	return ok, nil
}

// Release 处理失败时释放event_id
func (s *PaymentEventStore) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, paymentEventKey(eventID)).Err(); err != nil {
		return redisError(err, "释放支付事件失败")
	}
	return nil
}
