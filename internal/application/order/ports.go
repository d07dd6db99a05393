package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/pkg/logger"
)

// 应用层依赖的基础设施能力(由infrastructure层实现,测试时替换为内存实现)

// Transactor 事务执行器,*mysql.TxManager实现了它
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 订单事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event order.Event) error
}

// OrderCache 订单详情缓存
type OrderCache interface {
	Get(ctx context.Context, id uint) (*order.Order, bool, error)
	Set(ctx context.Context, o *order.Order) error
	Invalidate(ctx context.Context, id uint) error
}

// PaymentEventStore 支付回调去重
type PaymentEventStore interface {
	MarkProcessing(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// afterCommit 事务提交后的收尾:删除缓存(失败时用新状态覆盖)、发布事件
// 两者都是尽力而为,失败只记日志,已提交的订单不受影响
type afterCommit struct {
	cache     OrderCache
	publisher EventPublisher
	log       *zap.Logger
}

func (a afterCommit) run(ctx context.Context, o *order.Order, event order.Event) {
	// 请求结束后ctx会被取消,收尾动作不应被打断
	ctx = context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, a.log)

	// 删除失败时改为用提交后的订单覆盖缓存,否则旧状态会一直留到TTL到期。
	// 覆盖也失败说明Redis整体不可用,读路径会回源数据库。
	if err := a.cache.Invalidate(ctx, o.ID); err != nil {
		if setErr := a.cache.Set(ctx, o); setErr != nil {
			log.Warn("订单缓存失效失败,可能在TTL内读到旧状态",
				zap.Uint("order_id", o.ID),
				zap.Error(err),
				zap.NamedError("set_error", setErr),
			)
		} else {
			log.Warn("删除订单缓存失败,已用最新状态覆盖", zap.Uint("order_id", o.ID), zap.Error(err))
		}
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		log.Warn("订单事件发布失败",
			zap.String("type", event.Type),
			zap.String("order_no", o.OrderNo),
			zap.Error(err),
		)
	}
}
