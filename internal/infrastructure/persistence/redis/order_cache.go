package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/bookmall/internal/domain/order"
)

// OrderCache 订单详情缓存(Cache-Aside)
// 教学要点:
// 1. 读:先查缓存,未命中再查库并回填
// 2. 写:先改库,再删缓存(不是更新缓存),避免并发写入旧值
// 3. TTL兜底,删除失败时脏数据最多存活一个TTL
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderCache 创建订单缓存
func NewOrderCache(client *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{client: client, ttl: ttl}
}

func orderKey(id uint) string {
	return fmt.Sprintf("%sorder:%d", keyPrefix, id)
}

// Get 读取缓存,未命中时返回(nil, false, nil)
func (c *OrderCache) Get(ctx context.Context, id uint) (*order.Order, bool, error) {
	data, err := c.client.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, redisError(err, "读取订单缓存失败")
	}

	var o order.Order
	if err := json.Unmarshal(data, &o); err != nil {
		// 结构升级后的旧缓存直接当作未命中
		_ = c.client.Del(ctx, orderKey(id)).Err()
		return nil, false, nil
	}
	return &o, true, nil
}

// Set 回填缓存
func (c *OrderCache) Set(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("订单序列化失败: %w", err)
	}
	if err := c.client.Set(ctx, orderKey(o.ID), data, c.ttl).Err(); err != nil {
		return redisError(err, "写入订单缓存失败")
	}
	return nil
}

// Invalidate 订单变更后删除缓存
func (c *OrderCache) Invalidate(ctx context.Context, id uint) error {
	if err := c.client.Del(ctx, orderKey(id)).Err(); err != nil {
		return redisError(err, "删除订单缓存失败")
	}
	return nil
}
