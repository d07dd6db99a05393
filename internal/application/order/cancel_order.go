package order

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/domain/user"
	"github.com/xiebiao/bookmall/pkg/logger"
	"github.com/xiebiao/bookmall/pkg/metrics"
	"github.com/xiebiao/bookmall/pkg/tracing"
)

// canceller 取消订单的事务部分,买家取消和管理员把状态改为cancelled共用
type canceller struct {
	orderRepo order.Repository
	bookRepo  book.Repository
	tx        Transactor
}

// cancel 在一个事务内完成:状态检查 → 条件更新状态 → 归还库存 → 重新读取
//
// 教学要点:
// 1. MarkCancelled带"WHERE status = 读到的状态",两个并发取消只有一个能更新成功,
//    另一个得到ErrInvalidStatusTransition,库存只归还一次
// 2. 退款标记在同一条UPDATE里按数据库当前的支付状态计算,所以最后重新读取订单
func (c canceller) cancel(ctx context.Context, orderID uint, authorize func(*order.Order) error) (*order.Order, order.OrderStatus, error) {
	var cancelled *order.Order
	var from order.OrderStatus

	err := c.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := c.orderRepo.FindByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(o); err != nil {
			return err
		}

		from = o.Status
		if err := o.Cancel(); err != nil {
			return err
		}
		if err := c.orderRepo.MarkCancelled(txCtx, o.ID, from, *o.CancelledAt); err != nil {
			return err
		}

		// 按图书ID排序归还,多个事务以相同顺序加行锁,避免死锁
		restock := o.RestockItems()
		bookIDs := make([]uint, 0, len(restock))
		for id := range restock {
			bookIDs = append(bookIDs, id)
		}
		sort.Slice(bookIDs, func(i, j int) bool { return bookIDs[i] < bookIDs[j] })
		for _, id := range bookIDs {
			if err := c.bookRepo.IncrementStock(txCtx, id, restock[id]); err != nil {
				return err
			}
		}

		cancelled, err = c.orderRepo.FindByID(txCtx, o.ID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return cancelled, from, nil
}

// CancelOrderUseCase 取消订单用例(订单所有者或管理员)
type CancelOrderUseCase struct {
	canceller canceller
	after     afterCommit
	log       *zap.Logger
}

// NewCancelOrderUseCase 创建取消订单用例
func NewCancelOrderUseCase(
	orderRepo order.Repository,
	bookRepo book.Repository,
	tx Transactor,
	cache OrderCache,
	publisher EventPublisher,
	log *zap.Logger,
) *CancelOrderUseCase {
	return &CancelOrderUseCase{
		canceller: canceller{orderRepo: orderRepo, bookRepo: bookRepo, tx: tx},
		after:     afterCommit{cache: cache, publisher: publisher, log: log},
		log:       log,
	}
}

// Execute 取消订单
// 业务规则:
// 1. 只有订单所有者或管理员可以取消,否则返回ErrForbidden
// 2. 只能从pending/processing取消,重复取消返回ErrInvalidStatusTransition
// 3. 已支付的订单支付状态变为refunded
// 4. 库存恰好归还一次
func (uc *CancelOrderUseCase) Execute(ctx context.Context, orderID uint, actor user.Actor) (*OrderView, error) {
	ctx, span := tracing.StartSpan(ctx, "order", "CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", int64(orderID)))

	o, from, err := uc.canceller.cancel(ctx, orderID, func(o *order.Order) error {
		if !o.IsOwnedBy(actor.UserID) && !actor.IsAdmin() {
			return order.ErrForbidden
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	by := "owner"
	if !o.IsOwnedBy(actor.UserID) {
		by = "admin"
	}
	metrics.OrdersCancelledTotal.WithLabelValues(by).Inc()
	logger.WithContext(ctx, uc.log).Info("订单已取消",
		zap.String("order_no", o.OrderNo),
		zap.Uint("operator", actor.UserID),
		zap.String("from", from.String()),
		zap.String("payment_status", o.PaymentStatus.String()),
	)

	uc.after.run(ctx, o, order.NewEvent(order.EventCancelled, o).WithPrevious(from))
	return NewOrderView(o), nil
}
