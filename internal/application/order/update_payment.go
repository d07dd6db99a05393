package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/internal/domain/order"
	apperrors "github.com/xiebiao/bookmall/pkg/errors"
	"github.com/xiebiao/bookmall/pkg/logger"
	"github.com/xiebiao/bookmall/pkg/metrics"
	"github.com/xiebiao/bookmall/pkg/tracing"
)

// UpdatePaymentStatusUseCase 处理支付网关回调
type UpdatePaymentStatusUseCase struct {
	orderRepo order.Repository
	tx        Transactor
	events    PaymentEventStore
	after     afterCommit
	log       *zap.Logger
}

// NewUpdatePaymentStatusUseCase 创建支付回调用例
func NewUpdatePaymentStatusUseCase(
	orderRepo order.Repository,
	tx Transactor,
	events PaymentEventStore,
	cache OrderCache,
	publisher EventPublisher,
	log *zap.Logger,
) *UpdatePaymentStatusUseCase {
	return &UpdatePaymentStatusUseCase{
		orderRepo: orderRepo,
		tx:        tx,
		events:    events,
		after:     afterCommit{cache: cache, publisher: publisher, log: log},
		log:       log,
	}
}

// PaymentNotification 支付回调内容(签名已由HTTP层校验)
type PaymentNotification struct {
	EventID string // 网关事件ID,用于去重
	OrderNo string
	Status  string // completed | failed
}

// PaymentResult 回调处理结果
type PaymentResult struct {
	Order     *OrderView `json:"order,omitempty"`
	Duplicate bool       `json:"duplicate"`
}

// Execute 记录支付结果
//
// 教学要点:
// 1. 网关至少投递一次,同一个EventID第二次到达时直接返回Duplicate,不再修改订单
// 2. 只有系统错误(数据库不可用等)才释放去重标记,让网关重试;
//    业务拒绝(订单已取消、状态不允许)重试也不会成功,标记保留
// 3. 支付状态同样是条件更新:WHERE payment_status = 读到的值 AND order_status <> cancelled,
//    与并发的取消互斥
func (uc *UpdatePaymentStatusUseCase) Execute(ctx context.Context, n PaymentNotification) (*PaymentResult, error) {
	target, err := order.ParsePaymentStatus(n.Status)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "order", "UpdatePaymentStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_no", n.OrderNo),
		attribute.String("event_id", n.EventID),
		attribute.String("payment_status", target.String()),
	)
	log := logger.WithContext(ctx, uc.log).With(
		zap.String("order_no", n.OrderNo),
		zap.String("event_id", n.EventID),
	)

	if n.EventID != "" {
		first, err := uc.events.MarkProcessing(ctx, n.EventID)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
		if !first {
			metrics.PaymentUpdatesTotal.WithLabelValues(target.String(), "duplicate").Inc()
			log.Info("重复的支付回调,已忽略")
			return &PaymentResult{Duplicate: true}, nil
		}
	}

	o, err := uc.apply(ctx, n.OrderNo, target)
	if err != nil {
		metrics.PaymentUpdatesTotal.WithLabelValues(target.String(), "rejected").Inc()
		tracing.RecordError(span, err)
		if n.EventID != "" && apperrors.IsServerError(err) {
			if relErr := uc.events.Release(context.WithoutCancel(ctx), n.EventID); relErr != nil {
				log.Warn("释放支付事件标记失败", zap.Error(relErr))
			}
		}
		log.Info("支付回调被拒绝", zap.Error(err))
		return nil, err
	}

	metrics.PaymentUpdatesTotal.WithLabelValues(target.String(), "applied").Inc()
	log.Info("支付状态已更新", zap.String("payment_status", o.PaymentStatus.String()))

	uc.after.run(ctx, o, order.NewEvent(order.EventPaymentUpdated, o))
	return &PaymentResult{Order: NewOrderView(o)}, nil
}

func (uc *UpdatePaymentStatusUseCase) apply(ctx context.Context, orderNo string, target order.PaymentStatus) (*order.Order, error) {
	var updated *order.Order
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orderRepo.FindByOrderNo(txCtx, orderNo)
		if err != nil {
			return err
		}
		from := o.PaymentStatus
		if err := o.ApplyPayment(target); err != nil {
			return err
		}
		if err := uc.orderRepo.UpdatePaymentStatus(txCtx, o.ID, from, target); err != nil {
			return err
		}
		updated = o
		return nil
	})
	return updated, err
}
