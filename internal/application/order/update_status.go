package order

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/book"
	"github.com/xiebiao/bookmall/internal/domain/order"
	"github.com/xiebiao/bookmall/internal/domain/user"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/logger"
	"github.com/xiebiao/bookmall/pkg/metrics"
	"github.com/xiebiao/bookmall/pkg/tracing"
)

// ErrAdminOnly 非管理员调用管理接口
var ErrAdminOnly = apperrors.ErrForbidden.WithMessage("仅管理员可以执行此操作")

// UpdateOrderStatusUseCase 管理员更新订单状态
type UpdateOrderStatusUseCase struct {
	orderRepo order.Repository
	tx        Transactor
	canceller canceller
	after     afterCommit
	log       *zap.Logger
}

// NewUpdateOrderStatusUseCase 创建状态更新用例
func NewUpdateOrderStatusUseCase(
	orderRepo order.Repository,
	bookRepo book.Repository,
	tx Transactor,
	cache OrderCache,
	publisher EventPublisher,
	log *zap.Logger,
) *UpdateOrderStatusUseCase {
	return &UpdateOrderStatusUseCase{
		orderRepo: orderRepo,
		tx:        tx,
		canceller: canceller{orderRepo: orderRepo, bookRepo: bookRepo, tx: tx},
		after:     afterCommit{cache: cache, publisher: publisher, log: log},
		log:       log,
	}
}

// UpdateOrderStatusRequest 状态更新请求
type UpdateOrderStatusRequest struct {
	OrderID               uint
	Status                string // pending | processing | shipped | delivered | cancelled
	TrackingNumber        string // 发货时可选
	EstimatedDeliveryDate *time.Time
}

// Execute 更新订单状态
// 规则:
// 1. 仅管理员
// 2. 正向可以跳级,不能回退;已送达、已取消是终态
// 3. 目标为cancelled时走取消流程(退款标记、归还库存)
func (uc *UpdateOrderStatusUseCase) Execute(ctx context.Context, actor user.Actor, req UpdateOrderStatusRequest) (*OrderView, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	target, err := order.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "order", "UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order_id", int64(req.OrderID)),
		attribute.String("target", target.String()),
	)

	var o *order.Order
	var from order.OrderStatus
	var eventType string
	if target == order.OrderStatusCancelled {
		o, from, err = uc.canceller.cancel(ctx, req.OrderID, func(*order.Order) error { return nil })
		eventType = order.EventCancelled
		if err == nil {
			metrics.OrdersCancelledTotal.WithLabelValues("admin").Inc()
		}
	} else {
		o, from, err = uc.advance(ctx, req, target)
		eventType = order.EventStatusChanged
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	metrics.OrderStatusTransitionsTotal.WithLabelValues(from.String(), o.Status.String()).Inc()
	logger.WithContext(ctx, uc.log).Info("订单状态已更新",
		zap.String("order_no", o.OrderNo),
		zap.String("from", from.String()),
		zap.String("to", o.Status.String()),
		zap.Uint("operator", actor.UserID),
	)

	uc.after.run(ctx, o, order.NewEvent(eventType, o).WithPrevious(from))
	return NewOrderView(o), nil
}

// advance 正向推进状态,条件更新保证并发下不会从过期的状态出发
func (uc *UpdateOrderStatusUseCase) advance(ctx context.Context, req UpdateOrderStatusRequest, target order.OrderStatus) (*order.Order, order.OrderStatus, error) {
	var updated *order.Order
	var from order.OrderStatus

	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orderRepo.FindByID(txCtx, req.OrderID)
		if err != nil {
			return err
		}
		from = o.Status

		if target == order.OrderStatusShipped {
			err = o.Ship(req.TrackingNumber, req.EstimatedDeliveryDate)
		} else {
			err = o.TransitionTo(target)
		}
		if err != nil {
			return err
		}

		if err := uc.orderRepo.UpdateStatus(txCtx, o, from); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return updated, from, nil
}
